package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/db"
	"github.com/placedir/placedir-backend/internal/index"
	"github.com/stretchr/testify/require"
)

const testUserHeader = "X-Test-User"

var testDirectoryConfig = config.DirectoryConfig{
	NearMaxDistanceMeters: 10000,
	NearLimit:             10,
	SearchLimit:           5,
	TopRatedLimit:         10,
	TopRatedMinRatings:    3,
	PageSize:              2,
	MaxPageSize:           100,
}

type controllerFixture struct {
	router  *gin.Engine
	places  service.PlaceService
	ratings service.RatingService
}

func setUserIDInContext(c *gin.Context, userID uint) {
	c.Set("user_id", userID)
}

// testAuth stands in for the JWT middleware: the caller id comes from a header
func testAuth(c *gin.Context) {
	if raw := c.GetHeader(testUserHeader); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err == nil {
			setUserIDInContext(c, uint(id))
		}
	}
	c.Next()
}

func setupControllerTest(t *testing.T) *controllerFixture {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	placeRepo := repository.NewPlaceRepository(testDB)
	ratingRepo := repository.NewRatingRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)
	favoriteRepo := repository.NewFavoriteRepository(testDB)

	placeService := service.NewPlaceService(placeRepo, ratingRepo, userRepo,
		index.NewGeoIndex(), index.NewTextIndex(), nil, testDirectoryConfig)
	ratingService := service.NewRatingService(ratingRepo, placeRepo, nil)
	favoriteService := service.NewFavoriteService(favoriteRepo, placeRepo)
	aggregateService := service.NewAggregateService(placeRepo, nil, testDirectoryConfig)

	placeCtrl := NewPlaceController(placeService)
	ratingCtrl := NewRatingController(ratingService)
	favoriteCtrl := NewFavoriteController(favoriteService)
	tagCtrl := NewTagController(aggregateService, placeService)

	router := gin.New()
	router.Use(testAuth)
	api := router.Group("/api/v1")
	{
		places := api.Group("/places")
		places.GET("", placeCtrl.ListPlaces)
		places.POST("", placeCtrl.CreatePlace)
		places.GET("/search", placeCtrl.SearchPlaces)
		places.GET("/near", placeCtrl.NearPlaces)
		places.GET("/top", tagCtrl.TopRated)
		places.GET("/slug/:slug", placeCtrl.GetPlaceBySlug)
		places.GET("/:id", placeCtrl.GetPlaceByID)
		places.PUT("/:id", placeCtrl.UpdatePlace)
		places.GET("/:id/ratings", ratingCtrl.ListRatings)
		places.POST("/:id/ratings", ratingCtrl.AddRating)

		api.GET("/tags", tagCtrl.TagCounts)
		api.GET("/tags/:tag/places", tagCtrl.PlacesByTag)

		api.GET("/favorites", favoriteCtrl.ListFavorites)
		api.POST("/favorites/:place_id/toggle", favoriteCtrl.ToggleFavorite)
	}

	return &controllerFixture{router: router, places: placeService, ratings: ratingService}
}

func ptr[T any](v T) *T {
	return &v
}

func (f *controllerFixture) createPlace(t *testing.T, ownerID uint, name string, lng, lat float64, tags ...string) *model.Place {
	place, err := f.places.CreatePlace(context.Background(), ownerID, service.PlaceDraft{
		Name:        name,
		Description: "About " + name,
		Tags:        tags,
		Longitude:   ptr(lng),
		Latitude:    ptr(lat),
		Address:     "1 Main St",
	})
	require.NoError(t, err)
	return place
}

// do sends a request as userID (0 = anonymous) and returns the recorder
func (f *controllerFixture) do(t *testing.T, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(testUserHeader, strconv.FormatUint(uint64(userID), 10))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
