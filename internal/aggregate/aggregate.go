// Package aggregate computes directory statistics as pure functions over a
// snapshot of places and ratings. Nothing here touches storage.
package aggregate

import (
	"sort"

	"github.com/placedir/placedir-backend/internal/app/model"
)

// TagCount is one row of the tag histogram
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RatedPlace is one row of the top-rated ranking
type RatedPlace struct {
	Place        model.Place `json:"place"`
	AverageScore float64     `json:"average_score"`
	RatingCount  int         `json:"rating_count"`
}

// TagCounts flattens every place's tags and counts occurrences, count
// descending with ties broken by tag ascending.
func TagCounts(places []model.Place) []TagCount {
	counts := make(map[string]int)
	for _, p := range places {
		for _, tag := range p.Tags {
			counts[tag]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result
}

// FilterByTag keeps the places carrying tag; an empty tag keeps every place
// that has at least one tag.
func FilterByTag(places []model.Place, tag string) []model.Place {
	out := make([]model.Place, 0)
	for _, p := range places {
		if (tag == "" && len(p.Tags) > 0) || (tag != "" && p.Tags.Has(tag)) {
			out = append(out, p)
		}
	}
	return out
}

// TopRated joins places to their ratings and ranks by mean score. A place
// is included only when it has at least minRatings ratings. Ties are broken
// by place id ascending. Ratings pointing at unknown places are ignored.
func TopRated(places []model.Place, ratings []model.Rating, limit, minRatings int) []RatedPlace {
	if limit <= 0 {
		return []RatedPlace{}
	}
	if minRatings < 1 {
		minRatings = 1
	}

	type tally struct {
		sum   int
		count int
	}
	byPlace := make(map[uint]*tally, len(places))
	for _, p := range places {
		byPlace[p.ID] = &tally{}
	}
	for _, r := range ratings {
		if t, ok := byPlace[r.PlaceID]; ok {
			t.sum += r.Score
			t.count++
		}
	}

	ranked := make([]RatedPlace, 0)
	for _, p := range places {
		t := byPlace[p.ID]
		if t.count < minRatings {
			continue
		}
		ranked = append(ranked, RatedPlace{
			Place:        p,
			AverageScore: float64(t.sum) / float64(t.count),
			RatingCount:  t.count,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AverageScore != ranked[j].AverageScore {
			return ranked[i].AverageScore > ranked[j].AverageScore
		}
		return ranked[i].Place.ID < ranked[j].Place.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
