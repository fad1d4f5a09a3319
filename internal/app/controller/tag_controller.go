package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/middleware"
)

// TagController serves the tag histogram, places by tag and the top-rated
// ranking.
type TagController struct {
	aggregateService service.AggregateService
	placeService     service.PlaceService
}

func NewTagController(aggregateService service.AggregateService, placeService service.PlaceService) *TagController {
	return &TagController{
		aggregateService: aggregateService,
		placeService:     placeService,
	}
}

// TagCounts 태그별 장소 수 (많은 순)
// GET /api/v1/tags
// Query params:
//   - tag: 해당 태그가 붙은 장소도 함께 반환 (optional)
func (ctrl *TagController) TagCounts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	counts, err := ctrl.aggregateService.TagCounts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	resp := gin.H{
		"tags": counts,
	}
	if tag, ok := c.GetQuery("tag"); ok {
		tag = strings.TrimSpace(tag)
		places, err := ctrl.placeService.ListPlacesByTag(c.Request.Context(), tag)
		if err != nil {
			respondServiceError(c, err, "place")
			return
		}
		resp["tag"] = tag
		resp["places"] = places
	}

	log.Debug("Tag counts served", map[string]interface{}{
		"tags": len(counts),
	})

	c.JSON(http.StatusOK, resp)
}

// PlacesByTag 태그가 붙은 장소 목록
// GET /api/v1/tags/:tag/places
func (ctrl *TagController) PlacesByTag(c *gin.Context) {
	tag := c.Param("tag")

	places, err := ctrl.placeService.ListPlacesByTag(c.Request.Context(), tag)
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":    tag,
		"places": places,
		"count":  len(places),
	})
}

// TopRated ranks places by mean rating among those with enough ratings
// GET /api/v1/places/top?limit=&min_ratings=
func (ctrl *TagController) TopRated(c *gin.Context) {
	q := newQueryParams(c)
	limit := intOrZero(q.Int("limit"))
	minRatings := intOrZero(q.Int("min_ratings"))
	if !q.ok() {
		return
	}

	top, err := ctrl.aggregateService.TopRated(c.Request.Context(), limit, minRatings)
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"places": top,
		"count":  len(top),
	})
}
