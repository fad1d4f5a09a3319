package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/middleware"
)

type RatingController struct {
	ratingService service.RatingService
}

func NewRatingController(ratingService service.RatingService) *RatingController {
	return &RatingController{
		ratingService: ratingService,
	}
}

type AddRatingRequest struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// AddRating 장소 평가 작성
// POST /api/v1/places/:id/ratings
func (ctrl *RatingController) AddRating(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	placeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddRatingRequest
	if !bindJSON(c, &req) {
		return
	}

	rating, err := ctrl.ratingService.AddRating(c.Request.Context(), userID, placeID, req.Text, req.Score)
	if err != nil {
		respondServiceError(c, err, "rating")
		return
	}

	log.Info("Rating added", map[string]interface{}{
		"rating_id": rating.ID,
		"place_id":  placeID,
		"score":     rating.Score,
	})

	c.JSON(http.StatusCreated, gin.H{
		"rating": rating,
	})
}

// ListRatings 장소의 평가 목록 (최신순)
// GET /api/v1/places/:id/ratings
func (ctrl *RatingController) ListRatings(c *gin.Context) {
	placeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ratings, err := ctrl.ratingService.ListRatings(c.Request.Context(), placeID)
	if err != nil {
		respondServiceError(c, err, "rating")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratings": ratings,
		"count":   len(ratings),
	})
}
