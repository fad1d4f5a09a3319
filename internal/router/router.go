package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/controller"
	"github.com/placedir/placedir-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	placeController    *controller.PlaceController
	ratingController   *controller.RatingController
	favoriteController *controller.FavoriteController
	tagController      *controller.TagController
	authMiddleware     *middleware.AuthMiddleware
	rateLimiter        *middleware.RateLimiter
	config             *config.Config
}

func NewRouter(
	placeController *controller.PlaceController,
	ratingController *controller.RatingController,
	favoriteController *controller.FavoriteController,
	tagController *controller.TagController,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		placeController:    placeController,
		ratingController:   ratingController,
		favoriteController: favoriteController,
		tagController:      tagController,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Place directory API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 쓰기 요청: 인증 + IP별 요청 제한
	write := []gin.HandlerFunc{r.rateLimiter.Middleware(), r.authMiddleware.Authenticate()}

	v1 := router.Group("/api/v1")
	{
		places := v1.Group("/places")
		{
			places.GET("", r.placeController.ListPlaces)
			places.GET("/search", r.placeController.SearchPlaces)
			places.GET("/near", r.placeController.NearPlaces)
			places.GET("/top", r.tagController.TopRated)
			places.GET("/slug/:slug", r.placeController.GetPlaceBySlug)
			places.GET("/:id", r.placeController.GetPlaceByID)
			places.GET("/:id/ratings", r.ratingController.ListRatings)

			places.POST("", append(write, r.placeController.CreatePlace)...)
			places.PUT("/:id", append(write, r.placeController.UpdatePlace)...)
			places.POST("/:id/ratings", append(write, r.ratingController.AddRating)...)
		}

		tags := v1.Group("/tags")
		{
			tags.GET("", r.tagController.TagCounts)
			tags.GET("/:tag/places", r.tagController.PlacesByTag)
		}

		favorites := v1.Group("/favorites")
		favorites.Use(r.authMiddleware.Authenticate())
		{
			favorites.GET("", r.favoriteController.ListFavorites)
			favorites.POST("/:place_id/toggle", r.rateLimiter.Middleware(), r.favoriteController.ToggleFavorite)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
