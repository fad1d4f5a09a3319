package controller

import (
	"net/http"
	"testing"

	apperrors "github.com/placedir/placedir-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteController_ToggleTwiceRestoresSet(t *testing.T) {
	f := setupControllerTest(t)
	place := f.createPlace(t, 1, "Philz", -122.4, 37.78)
	path := "/api/v1/favorites/" + itoa(place.ID) + "/toggle"

	w := f.do(t, http.MethodPost, path, 5, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["added"])
	favorites := body["favorites"].(map[string]interface{})
	assert.Equal(t, []interface{}{float64(place.ID)}, favorites["place_ids"])

	w = f.do(t, http.MethodGet, "/api/v1/favorites", 5, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = f.do(t, http.MethodPost, path, 5, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["added"])
	assert.Empty(t, body["favorites"].(map[string]interface{})["place_ids"])

	w = f.do(t, http.MethodGet, "/api/v1/favorites", 5, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])
}

func TestFavoriteController_Errors(t *testing.T) {
	f := setupControllerTest(t)

	w := f.do(t, http.MethodPost, "/api/v1/favorites/1/toggle", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/favorites", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/favorites/9999/toggle", 5, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.PlaceNotFound, decodeBody(t, w)["error"])

	w = f.do(t, http.MethodPost, "/api/v1/favorites/0/toggle", 5, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
