package service

import (
	"context"
	"testing"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/db"
	"github.com/placedir/placedir-backend/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDirectoryConfig = config.DirectoryConfig{
	NearMaxDistanceMeters: 10000,
	NearLimit:             10,
	SearchLimit:           5,
	TopRatedLimit:         10,
	TopRatedMinRatings:    3,
	PageSize:              6,
	MaxPageSize:           100,
}

type directoryFixture struct {
	db         *gorm.DB
	placeRepo  repository.PlaceRepository
	places     PlaceService
	ratings    RatingService
	favorites  FavoriteService
	aggregates AggregateService
}

func setupDirectoryTest(t *testing.T) *directoryFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	placeRepo := repository.NewPlaceRepository(testDB)
	ratingRepo := repository.NewRatingRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)
	favoriteRepo := repository.NewFavoriteRepository(testDB)

	return &directoryFixture{
		db:        testDB,
		placeRepo: placeRepo,
		places: NewPlaceService(placeRepo, ratingRepo, userRepo,
			index.NewGeoIndex(), index.NewTextIndex(), nil, testDirectoryConfig),
		ratings:    NewRatingService(ratingRepo, placeRepo, nil),
		favorites:  NewFavoriteService(favoriteRepo, placeRepo),
		aggregates: NewAggregateService(placeRepo, nil, testDirectoryConfig),
	}
}

func ptr[T any](v T) *T {
	return &v
}

func draft(name string, lng, lat float64, tags ...string) PlaceDraft {
	return PlaceDraft{
		Name:        name,
		Description: "A place called " + name,
		Tags:        tags,
		Longitude:   ptr(lng),
		Latitude:    ptr(lat),
		Address:     "1 Market St, San Francisco",
	}
}

func (f *directoryFixture) mustCreate(t *testing.T, ownerID uint, d PlaceDraft) *model.Place {
	place, err := f.places.CreatePlace(context.Background(), ownerID, d)
	require.NoError(t, err)
	return place
}

func TestPlaceService_CreateAssignsSequentialSlugs(t *testing.T) {
	f := setupDirectoryTest(t)

	first := f.mustCreate(t, 1, draft("Blue Bottle Coffee", -122.39, 37.79))
	second := f.mustCreate(t, 2, draft("Blue Bottle Coffee", -122.40, 37.78))
	third := f.mustCreate(t, 3, draft("blue bottle coffee!", -122.41, 37.77))

	assert.Equal(t, "blue-bottle-coffee", first.Slug)
	assert.Equal(t, "blue-bottle-coffee-2", second.Slug)
	assert.Equal(t, "blue-bottle-coffee-3", third.Slug)
	assert.Equal(t, 1, first.Version)
}

func TestPlaceService_CreateNormalizesInput(t *testing.T) {
	f := setupDirectoryTest(t)

	d := draft("  Café Crème  ", 2.35, 48.85, " coffee", "coffee", "", "pastry ")
	d.Description = "  Croissants  "
	place := f.mustCreate(t, 1, d)

	assert.Equal(t, "Café Crème", place.Name)
	assert.Equal(t, "cafe-creme", place.Slug)
	assert.Equal(t, "Croissants", place.Description)
	assert.Equal(t, model.TagList{"coffee", "pastry"}, place.Tags)
}

func TestPlaceService_CreateValidation(t *testing.T) {
	f := setupDirectoryTest(t)

	tests := []struct {
		name   string
		draft  PlaceDraft
		fields []string
	}{
		{
			name:   "Blank name",
			draft:  draft("   ", 0, 0),
			fields: []string{"name"},
		},
		{
			name:   "Missing coordinates",
			draft:  PlaceDraft{Name: "Nowhere", Address: "?"},
			fields: []string{"location"},
		},
		{
			name:   "Latitude out of range",
			draft:  draft("North", 0, 91),
			fields: []string{"location"},
		},
		{
			name:   "Missing address and name",
			draft:  PlaceDraft{Longitude: ptr(1.0), Latitude: ptr(1.0)},
			fields: []string{"name", "address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.places.CreatePlace(context.Background(), 1, tt.draft)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}
}

// staleSlugRepo hides existing slugs from the assigner to force unique
// index collisions.
type staleSlugRepo struct {
	repository.PlaceRepository
	staleCalls int
	calls      int
}

func (r *staleSlugRepo) SlugCandidates(ctx context.Context, base string, excludeID uint) ([]string, error) {
	r.calls++
	if r.calls <= r.staleCalls {
		return nil, nil
	}
	return r.PlaceRepository.SlugCandidates(ctx, base, excludeID)
}

func TestPlaceService_CreateRetriesOnSlugCollision(t *testing.T) {
	f := setupDirectoryTest(t)
	f.mustCreate(t, 1, draft("Zuni", -122.42, 37.77))

	stale := &staleSlugRepo{PlaceRepository: f.placeRepo, staleCalls: 1}
	svc := NewPlaceService(stale, repository.NewRatingRepository(f.db), repository.NewUserRepository(f.db),
		index.NewGeoIndex(), index.NewTextIndex(), nil, testDirectoryConfig)

	place, err := svc.CreatePlace(context.Background(), 2, draft("Zuni", -122.42, 37.77))
	require.NoError(t, err)
	assert.Equal(t, "zuni-2", place.Slug)
	assert.Equal(t, 2, stale.calls)
}

func TestPlaceService_CreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := setupDirectoryTest(t)
	f.mustCreate(t, 1, draft("Zuni", -122.42, 37.77))

	stale := &staleSlugRepo{PlaceRepository: f.placeRepo, staleCalls: 100}
	svc := NewPlaceService(stale, repository.NewRatingRepository(f.db), repository.NewUserRepository(f.db),
		index.NewGeoIndex(), index.NewTextIndex(), nil, testDirectoryConfig)

	_, err := svc.CreatePlace(context.Background(), 2, draft("Zuni", -122.42, 37.77))
	assert.ErrorIs(t, err, ErrSlugConflict)
	assert.Equal(t, maxSlugAttempts, stale.calls)
}

func TestPlaceService_UpdateRenameReassignsSlug(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	f.mustCreate(t, 1, draft("Joe's", -122.40, 37.79))
	philz := f.mustCreate(t, 2, draft("Philz", -122.41, 37.78))

	updated, err := f.places.UpdatePlace(ctx, 2, philz.ID, PlacePatch{Name: ptr("Joe's")})
	require.NoError(t, err)
	assert.Equal(t, "joe-s-2", updated.Slug)
	assert.Equal(t, 2, updated.Version)

	// same base keeps the existing suffix
	updated, err = f.places.UpdatePlace(ctx, 2, philz.ID, PlacePatch{Name: ptr("JOE'S")})
	require.NoError(t, err)
	assert.Equal(t, "joe-s-2", updated.Slug)
	assert.Equal(t, "JOE'S", updated.Name)
}

func TestPlaceService_UpdateWithoutRenameKeepsSlug(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	place := f.mustCreate(t, 1, draft("Tartine", -122.42, 37.76, "bakery"))

	updated, err := f.places.UpdatePlace(ctx, 1, place.ID, PlacePatch{
		Description: ptr("Bread"),
		Tags:        &[]string{"bakery", "bread", "bakery"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tartine", updated.Slug)
	assert.Equal(t, "Bread", updated.Description)
	assert.Equal(t, model.TagList{"bakery", "bread"}, updated.Tags)
	assert.Equal(t, "1 Market St, San Francisco", updated.Address)
}

func TestPlaceService_UpdateRules(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	place := f.mustCreate(t, 1, draft("Zuni", -122.42, 37.77))

	t.Run("Not the owner", func(t *testing.T) {
		_, err := f.places.UpdatePlace(ctx, 99, place.ID, PlacePatch{Name: ptr("Mine")})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Unknown place", func(t *testing.T) {
		_, err := f.places.UpdatePlace(ctx, 1, 9999, PlacePatch{Name: ptr("Ghost")})
		assert.ErrorIs(t, err, ErrPlaceNotFound)
	})

	t.Run("Single coordinate", func(t *testing.T) {
		_, err := f.places.UpdatePlace(ctx, 1, place.ID, PlacePatch{Longitude: ptr(10.0)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "location")
	})

	t.Run("Stale expected version", func(t *testing.T) {
		_, err := f.places.UpdatePlace(ctx, 1, place.ID, PlacePatch{
			Description:     ptr("new"),
			ExpectedVersion: ptr(place.Version + 5),
		})
		assert.ErrorIs(t, err, ErrPlaceVersionConflict)
	})

	t.Run("Empty patch is a no-op", func(t *testing.T) {
		same, err := f.places.UpdatePlace(ctx, 1, place.ID, PlacePatch{})
		require.NoError(t, err)
		assert.Equal(t, place.Version, same.Version)
	})
}

func TestPlaceService_UpdateMovesPlaceInIndexes(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	place := f.mustCreate(t, 1, draft("Mover", -122.42, 37.77))

	_, err := f.places.UpdatePlace(ctx, 1, place.ID, PlacePatch{
		Name:      ptr("Noodle House"),
		Longitude: ptr(2.35),
		Latitude:  ptr(48.85),
	})
	require.NoError(t, err)

	near, err := f.places.NearPlaces(ctx, NearQuery{Longitude: 2.35, Latitude: 48.85})
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, place.ID, near[0].ID)

	near, err = f.places.NearPlaces(ctx, NearQuery{Longitude: -122.42, Latitude: 37.77})
	require.NoError(t, err)
	assert.Empty(t, near)

	hits, err := f.places.SearchPlaces(ctx, "noodle", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "noodle-house", hits[0].Place.Slug)
}

func TestPlaceService_GetBySlugWithJoins(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	author := &model.User{Name: "Ana", Email: "ana@example.com"}
	rater := &model.User{Name: "Ben", Email: "ben@example.com"}
	require.NoError(t, f.db.Create(author).Error)
	require.NoError(t, f.db.Create(rater).Error)

	place := f.mustCreate(t, author.ID, draft("Zuni", -122.42, 37.77))
	_, err := f.ratings.AddRating(ctx, rater.ID, place.ID, "Roast chicken!", 5)
	require.NoError(t, err)

	plain, err := f.places.GetPlaceBySlug(ctx, "zuni", FetchOptions{})
	require.NoError(t, err)
	assert.Nil(t, plain.Ratings)
	assert.Nil(t, plain.Author)

	full, err := f.places.GetPlaceBySlug(ctx, "zuni", FetchOptions{WithRatings: true, WithAuthor: true})
	require.NoError(t, err)
	require.Len(t, full.Ratings, 1)
	require.NotNil(t, full.Author)
	assert.Equal(t, "Ana", full.Author.Name)
	require.NotNil(t, full.Ratings[0].Rater)
	assert.Equal(t, "Ben", full.Ratings[0].Rater.Name)

	_, err = f.places.GetPlaceBySlug(ctx, "nope", FetchOptions{})
	assert.ErrorIs(t, err, ErrPlaceNotFound)

	_, err = f.places.GetPlaceByID(ctx, 9999, FetchOptions{})
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestPlaceService_ListPlacesPaginates(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	empty, err := f.places.ListPlaces(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Places)
	assert.Equal(t, 1, empty.LastPage)

	var created []*model.Place
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		created = append(created, f.mustCreate(t, 1, draft(name, 0, 0)))
	}

	first, err := f.places.ListPlaces(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, first.Places, 6)
	assert.Equal(t, 2, first.LastPage)
	assert.Equal(t, int64(7), first.Total)
	assert.Equal(t, created[6].ID, first.Places[0].ID)

	second, err := f.places.ListPlaces(ctx, 2, 6)
	require.NoError(t, err)
	require.Len(t, second.Places, 1)
	assert.Equal(t, created[0].ID, second.Places[0].ID)

	_, err = f.places.ListPlaces(ctx, 3, 6)
	var pageErr *PageOutOfRangeError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 2, pageErr.LastPage)

	_, err = f.places.ListPlaces(ctx, -1, 6)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPlaceService_SearchPlaces(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	coffee := f.mustCreate(t, 1, draft("Blue Bottle Coffee", -122.39, 37.79))
	d := draft("Tartine", -122.42, 37.76)
	d.Description = "Bread and coffee"
	f.mustCreate(t, 1, d)
	f.mustCreate(t, 1, draft("Zuni", -122.42, 37.77))

	hits, err := f.places.SearchPlaces(ctx, "coffee", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, coffee.ID, hits[0].Place.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = f.places.SearchPlaces(ctx, "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = f.places.SearchPlaces(ctx, "coffee", -1)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPlaceService_NearPlaces(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	ferry := f.mustCreate(t, 1, draft("Ferry Building", -122.3937, 37.7955))
	coit := f.mustCreate(t, 1, draft("Coit Tower", -122.4058, 37.8024))
	f.mustCreate(t, 1, draft("Los Angeles", -118.2437, 34.0522))

	near, err := f.places.NearPlaces(ctx, NearQuery{Longitude: -122.3937, Latitude: 37.7955})
	require.NoError(t, err)
	require.Len(t, near, 2)
	assert.Equal(t, ferry.ID, near[0].ID)
	assert.Equal(t, 0.0, near[0].DistanceMeters)
	assert.Equal(t, coit.ID, near[1].ID)
	assert.InDelta(t, 1300, near[1].DistanceMeters, 100)

	near, err = f.places.NearPlaces(ctx, NearQuery{Longitude: -122.3937, Latitude: 37.7955, Limit: ptr(1)})
	require.NoError(t, err)
	assert.Len(t, near, 1)

	// zero means unset, like the search limit
	near, err = f.places.NearPlaces(ctx, NearQuery{
		Longitude: -122.3937, Latitude: 37.7955,
		MaxDistanceMeters: ptr(0.0), Limit: ptr(0),
	})
	require.NoError(t, err)
	assert.Len(t, near, 2)

	_, err = f.places.NearPlaces(ctx, NearQuery{Longitude: 0, Latitude: 0, MaxDistanceMeters: ptr(-5.0)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "max_distance")

	_, err = f.places.NearPlaces(ctx, NearQuery{Longitude: 181, Latitude: 0})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "location")
}

func TestPlaceService_ListPlacesByTag(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	f.mustCreate(t, 1, draft("Cafe", 0, 0, "coffee", "wifi"))
	f.mustCreate(t, 1, draft("Bar", 0, 0, "cocktails"))
	f.mustCreate(t, 1, draft("Park", 0, 0))

	places, err := f.places.ListPlacesByTag(ctx, "wifi")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "cafe", places[0].Slug)

	places, err = f.places.ListPlacesByTag(ctx, "")
	require.NoError(t, err)
	assert.Len(t, places, 2)
}

func TestPlaceService_RebuildIndexes(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	place := f.mustCreate(t, 1, draft("Noodle Bar", -122.41, 37.78))

	// a fresh node starts with empty indexes
	svc := NewPlaceService(f.placeRepo, repository.NewRatingRepository(f.db), repository.NewUserRepository(f.db),
		index.NewGeoIndex(), index.NewTextIndex(), nil, testDirectoryConfig)

	hits, err := svc.SearchPlaces(ctx, "noodle", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, svc.RebuildIndexes(ctx))

	hits, err = svc.SearchPlaces(ctx, "noodle", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, place.ID, hits[0].Place.ID)

	near, err := svc.NearPlaces(ctx, NearQuery{Longitude: -122.41, Latitude: 37.78})
	require.NoError(t, err)
	assert.Len(t, near, 1)
}

// loadHookRepo runs afterLoad once FindAll has read the table
type loadHookRepo struct {
	repository.PlaceRepository
	afterLoad func()
}

func (r *loadHookRepo) FindAll(ctx context.Context) ([]model.Place, error) {
	places, err := r.PlaceRepository.FindAll(ctx)
	if err == nil && r.afterLoad != nil {
		hook := r.afterLoad
		r.afterLoad = nil
		hook()
	}
	return places, err
}

func TestPlaceService_RebuildIndexesKeepsConcurrentWrites(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	moved := f.mustCreate(t, 1, draft("Noodle Bar", -122.41, 37.78))

	repo := &loadHookRepo{PlaceRepository: f.placeRepo}
	svc := NewPlaceService(repo, repository.NewRatingRepository(f.db), repository.NewUserRepository(f.db),
		index.NewGeoIndex(), index.NewTextIndex(), nil, testDirectoryConfig)

	var created *model.Place
	repo.afterLoad = func() {
		var err error
		created, err = svc.CreatePlace(ctx, 2, draft("Dumpling House", -122.41, 37.78))
		require.NoError(t, err)
		_, err = svc.UpdatePlace(ctx, 1, moved.ID, PlacePatch{Longitude: ptr(2.35), Latitude: ptr(48.85)})
		require.NoError(t, err)
	}

	require.NoError(t, svc.RebuildIndexes(ctx))
	require.NotNil(t, created)

	hits, err := svc.SearchPlaces(ctx, "dumpling", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, created.ID, hits[0].Place.ID)

	near, err := svc.NearPlaces(ctx, NearQuery{Longitude: -122.41, Latitude: 37.78})
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, created.ID, near[0].ID)

	near, err = svc.NearPlaces(ctx, NearQuery{Longitude: 2.35, Latitude: 48.85})
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, moved.ID, near[0].ID)

	// the next rebuild has nothing left to reconcile
	require.NoError(t, svc.RebuildIndexes(ctx))
	near, err = svc.NearPlaces(ctx, NearQuery{Longitude: -122.41, Latitude: 37.78})
	require.NoError(t, err)
	assert.Len(t, near, 1)
}
