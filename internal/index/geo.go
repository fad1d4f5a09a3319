package index

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/mmcloughlin/geohash"
	"github.com/placedir/placedir-backend/pkg/util"
)

const (
	// maxPrecision is the finest geohash level kept (about 150m cells)
	maxPrecision = 7
	// metersPerDegree is the length of one degree of latitude
	metersPerDegree = util.EarthRadiusMeters * math.Pi / 180
	// polarCutoff: above this latitude neighbour cells stop wrapping sanely
	polarCutoff = 85.0
)

var (
	ErrInvalidPoint    = errors.New("coordinates must be finite and within longitude [-180,180], latitude [-90,90]")
	ErrInvalidDistance = errors.New("max distance must be a positive finite number of meters")
	ErrInvalidLimit    = errors.New("limit must be positive")
)

// GeoHit is one proximity result
type GeoHit struct {
	ID             uint
	DistanceMeters float64
}

// GeoPoint is one place location fed to Rebuild
type GeoPoint struct {
	ID        uint
	Longitude float64
	Latitude  float64
}

type geoEntry struct {
	lng, lat float64
	hash     string
}

// GeoIndex answers radius queries over place coordinates. Points are
// bucketed by geohash prefix at every precision up to maxPrecision; a query
// reads the cell containing the point plus its eight neighbours at the
// finest precision whose cells are at least as large as the radius, then
// filters and orders by exact great-circle distance.
type GeoIndex struct {
	mu     sync.RWMutex
	points map[uint]geoEntry
	cells  [maxPrecision + 1]map[string]map[uint]struct{}
}

func NewGeoIndex() *GeoIndex {
	ix := &GeoIndex{points: make(map[uint]geoEntry)}
	for p := 1; p <= maxPrecision; p++ {
		ix.cells[p] = make(map[string]map[uint]struct{})
	}
	return ix
}

// Upsert inserts or moves a point
func (ix *GeoIndex) Upsert(id uint, lng, lat float64) error {
	if !util.ValidCoordinates(lng, lat) {
		return ErrInvalidPoint
	}
	hash := geohash.EncodeWithPrecision(lat, lng, maxPrecision)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(id)
	ix.points[id] = geoEntry{lng: lng, lat: lat, hash: hash}
	for p := 1; p <= maxPrecision; p++ {
		cell := hash[:p]
		bucket, ok := ix.cells[p][cell]
		if !ok {
			bucket = make(map[uint]struct{})
			ix.cells[p][cell] = bucket
		}
		bucket[id] = struct{}{}
	}
	return nil
}

// Remove drops a point; unknown ids are ignored
func (ix *GeoIndex) Remove(id uint) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *GeoIndex) removeLocked(id uint) {
	entry, ok := ix.points[id]
	if !ok {
		return
	}
	delete(ix.points, id)
	for p := 1; p <= maxPrecision; p++ {
		cell := entry.hash[:p]
		if bucket, ok := ix.cells[p][cell]; ok {
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(ix.cells[p], cell)
			}
		}
	}
}

// Rebuild replaces the whole index with points, skipping invalid ones, and
// returns how many were skipped. Readers see either the old or the new set.
func (ix *GeoIndex) Rebuild(points []GeoPoint) int {
	fresh := NewGeoIndex()
	skipped := 0
	for _, p := range points {
		if err := fresh.Upsert(p.ID, p.Longitude, p.Latitude); err != nil {
			skipped++
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.points = fresh.points
	ix.cells = fresh.cells
	return skipped
}

// Len returns the number of indexed points
func (ix *GeoIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.points)
}

// Near returns up to limit points within maxDistanceMeters of (lng, lat),
// nearest first, ties broken by id ascending.
func (ix *GeoIndex) Near(lng, lat, maxDistanceMeters float64, limit int) ([]GeoHit, error) {
	if !util.ValidCoordinates(lng, lat) {
		return nil, ErrInvalidPoint
	}
	if math.IsNaN(maxDistanceMeters) || math.IsInf(maxDistanceMeters, 0) || maxDistanceMeters <= 0 {
		return nil, ErrInvalidDistance
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]GeoHit, 0)
	consider := func(id uint) {
		entry := ix.points[id]
		d := util.DistanceMeters(lng, lat, entry.lng, entry.lat)
		if d <= maxDistanceMeters {
			hits = append(hits, GeoHit{ID: id, DistanceMeters: d})
		}
	}

	if precision := coveringPrecision(lng, lat, maxDistanceMeters); precision > 0 {
		center := geohash.EncodeWithPrecision(lat, lng, uint(precision))
		seen := make(map[string]struct{}, 9)
		for _, cell := range append(geohash.Neighbors(center), center) {
			if _, dup := seen[cell]; dup {
				continue
			}
			seen[cell] = struct{}{}
			for id := range ix.cells[precision][cell] {
				consider(id)
			}
		}
	} else {
		for id := range ix.points {
			consider(id)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceMeters != hits[j].DistanceMeters {
			return hits[i].DistanceMeters < hits[j].DistanceMeters
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// coveringPrecision returns the finest geohash precision whose cells are at
// least radius tall and wide around the point, or 0 when only a full scan is
// safe (near a pole or when the radius crosses the antimeridian).
func coveringPrecision(lng, lat, radius float64) int {
	radiusDeg := radius / metersPerDegree
	if math.Abs(lat)+radiusDeg >= polarCutoff {
		return 0
	}
	// widths shrink toward the poles; measure at the most poleward latitude
	// the radius can reach
	cosLat := math.Cos((math.Abs(lat) + radiusDeg) * math.Pi / 180)
	if math.Abs(lng)+radiusDeg/cosLat >= 180 {
		return 0
	}

	for p := maxPrecision; p >= 1; p-- {
		latDeg, lngDeg := cellSize(p)
		height := latDeg * metersPerDegree
		width := lngDeg * metersPerDegree * cosLat
		if height >= radius && width >= radius {
			return p
		}
	}
	return 0
}

// cellSize returns the latitude and longitude span in degrees of a geohash
// cell with the given number of characters.
func cellSize(precision int) (latDeg, lngDeg float64) {
	bits := 5 * precision
	lngBits := (bits + 1) / 2
	latBits := bits / 2
	return 180 / math.Pow(2, float64(latBits)), 360 / math.Pow(2, float64(lngBits))
}
