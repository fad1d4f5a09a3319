package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/middleware"
)

type FavoriteController struct {
	favoriteService service.FavoriteService
}

func NewFavoriteController(favoriteService service.FavoriteService) *FavoriteController {
	return &FavoriteController{
		favoriteService: favoriteService,
	}
}

// ToggleFavorite adds the place to the caller's favorites, or removes it if
// it is already there. Returns the resulting set.
// POST /api/v1/favorites/:place_id/toggle
func (ctrl *FavoriteController) ToggleFavorite(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	placeID, ok := parseIDParam(c, "place_id")
	if !ok {
		return
	}

	result, err := ctrl.favoriteService.Toggle(c.Request.Context(), userID, placeID)
	if err != nil {
		respondServiceError(c, err, "favorite")
		return
	}

	log.Info("Favorite toggled", map[string]interface{}{
		"user_id":  userID,
		"place_id": placeID,
		"added":    result.Added,
	})

	c.JSON(http.StatusOK, gin.H{
		"added":     result.Added,
		"favorites": result.Set,
	})
}

// ListFavorites returns the caller's favorite places
// GET /api/v1/favorites
func (ctrl *FavoriteController) ListFavorites(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	places, err := ctrl.favoriteService.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"places": places,
		"count":  len(places),
	})
}
