package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/internal/app/service"
	apperrors "github.com/placedir/placedir-backend/internal/errors"
	"github.com/placedir/placedir-backend/internal/middleware"
)

type PlaceController struct {
	placeService service.PlaceService
}

func NewPlaceController(placeService service.PlaceService) *PlaceController {
	return &PlaceController{
		placeService: placeService,
	}
}

type CreatePlaceRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
	Address     string   `json:"address"`
	PhotoRef    string   `json:"photo_ref"`
}

// UpdatePlaceRequest 생략된 필드는 변경하지 않는다
type UpdatePlaceRequest struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	Tags            *[]string `json:"tags"`
	Longitude       *float64  `json:"longitude"`
	Latitude        *float64  `json:"latitude"`
	Address         *string   `json:"address"`
	PhotoRef        *string   `json:"photo_ref"`
	ExpectedVersion *int      `json:"expected_version"`
}

// CreatePlace registers a new place owned by the caller
// POST /api/v1/places
func (ctrl *PlaceController) CreatePlace(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreatePlaceRequest
	if !bindJSON(c, &req) {
		return
	}

	place, err := ctrl.placeService.CreatePlace(c.Request.Context(), userID, service.PlaceDraft{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Longitude:   req.Longitude,
		Latitude:    req.Latitude,
		Address:     req.Address,
		PhotoRef:    req.PhotoRef,
	})
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	log.Info("Place created", map[string]interface{}{
		"place_id": place.ID,
		"slug":     place.Slug,
		"owner_id": userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"place": place,
	})
}

// UpdatePlace applies a partial update. Only the owner may update.
// PUT /api/v1/places/:id
func (ctrl *PlaceController) UpdatePlace(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	placeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePlaceRequest
	if !bindJSON(c, &req) {
		return
	}

	place, err := ctrl.placeService.UpdatePlace(c.Request.Context(), userID, placeID, service.PlacePatch{
		Name:            req.Name,
		Description:     req.Description,
		Tags:            req.Tags,
		Longitude:       req.Longitude,
		Latitude:        req.Latitude,
		Address:         req.Address,
		PhotoRef:        req.PhotoRef,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	log.Info("Place updated", map[string]interface{}{
		"place_id": place.ID,
		"version":  place.Version,
	})

	c.JSON(http.StatusOK, gin.H{
		"place": place,
	})
}

// GetPlaceBySlug returns a place by its public identifier
// GET /api/v1/places/slug/:slug?with_ratings=&with_author=
func (ctrl *PlaceController) GetPlaceBySlug(c *gin.Context) {
	q := newQueryParams(c)
	opts := service.FetchOptions{
		WithRatings: q.Bool("with_ratings"),
		WithAuthor:  q.Bool("with_author"),
	}
	if !q.ok() {
		return
	}

	place, err := ctrl.placeService.GetPlaceBySlug(c.Request.Context(), c.Param("slug"), opts)
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"place": place,
	})
}

// GetPlaceByID returns a place by numeric id
// GET /api/v1/places/:id?with_ratings=&with_author=
func (ctrl *PlaceController) GetPlaceByID(c *gin.Context) {
	placeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	q := newQueryParams(c)
	opts := service.FetchOptions{
		WithRatings: q.Bool("with_ratings"),
		WithAuthor:  q.Bool("with_author"),
	}
	if !q.ok() {
		return
	}

	place, err := ctrl.placeService.GetPlaceByID(c.Request.Context(), placeID, opts)
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"place": place,
	})
}

// ListPlaces returns one page of places, newest first. A page past the end
// redirects to the last page.
// GET /api/v1/places?page=&page_size=
func (ctrl *PlaceController) ListPlaces(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	q := newQueryParams(c)
	page := intOrZero(q.Int("page"))
	pageSize := intOrZero(q.Int("page_size"))
	if !q.ok() {
		return
	}

	result, err := ctrl.placeService.ListPlaces(c.Request.Context(), page, pageSize)
	if err != nil {
		var pageErr *service.PageOutOfRangeError
		if errors.As(err, &pageErr) {
			location := fmt.Sprintf("%s?page=%d", c.Request.URL.Path, pageErr.LastPage)
			if pageSize != 0 {
				location += fmt.Sprintf("&page_size=%d", pageSize)
			}
			log.Info("Redirecting to last page", map[string]interface{}{
				"page":      pageErr.Page,
				"last_page": pageErr.LastPage,
			})
			c.Header("Location", location)
			c.JSON(http.StatusSeeOther, gin.H{
				"error":     apperrors.PlacePageOutOfRange,
				"message":   pageErr.Error(),
				"last_page": pageErr.LastPage,
			})
			return
		}
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchPlaces ranks places by text relevance
// GET /api/v1/places/search?q=&limit=
func (ctrl *PlaceController) SearchPlaces(c *gin.Context) {
	q := newQueryParams(c)
	limit := intOrZero(q.Int("limit"))
	if !q.ok() {
		return
	}
	query := strings.TrimSpace(c.Query("q"))

	hits, err := ctrl.placeService.SearchPlaces(c.Request.Context(), query, limit)
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": hits,
		"count":   len(hits),
	})
}

// NearPlaces returns places within a radius of a point, nearest first
// GET /api/v1/places/near?lng=&lat=&max_distance=&limit=
func (ctrl *PlaceController) NearPlaces(c *gin.Context) {
	q := newQueryParams(c)
	lng := q.Float("lng")
	lat := q.Float("lat")
	if lng == nil {
		q.require("lng")
	}
	if lat == nil {
		q.require("lat")
	}
	query := service.NearQuery{
		MaxDistanceMeters: q.Float("max_distance"),
		Limit:             q.Int("limit"),
	}
	if !q.ok() {
		return
	}
	query.Longitude, query.Latitude = *lng, *lat

	places, err := ctrl.placeService.NearPlaces(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err, "place")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"places": places,
		"count":  len(places),
	})
}
