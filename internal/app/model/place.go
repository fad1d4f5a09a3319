package model

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TagList is a set of free-text labels. It is stored as a Postgres text[]
// and as its array literal elsewhere, so both the server and SQLite tests
// round-trip through the same pq codec.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	return pq.StringArray(t).Value()
}

func (t *TagList) Scan(value interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return err
	}
	*t = TagList(arr)
	return nil
}

func (TagList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// NormalizeTags trims labels and drops blanks and duplicates, keeping first-seen order
func NormalizeTags(tags []string) TagList {
	seen := make(map[string]struct{}, len(tags))
	out := make(TagList, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Has reports whether the tag is in the list
func (t TagList) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

type Place struct {
	ID          uint    `gorm:"primarykey" json:"id"`                             // 장소 ID
	OwnerID     uint    `gorm:"not null;index" json:"owner_id"`                   // 등록한 사용자 ID (불변)
	Name        string  `gorm:"not null" json:"name"`                             // 장소명
	Slug        string  `gorm:"uniqueIndex:idx_places_slug;not null" json:"slug"` // URL용 고유 식별자
	Description string  `gorm:"type:text" json:"description"`                     // 소개
	Tags        TagList `json:"tags"`                                             // 태그 목록
	Longitude   float64 `gorm:"not null" json:"longitude"`                        // 경도 (WGS84)
	Latitude    float64 `gorm:"not null" json:"latitude"`                         // 위도 (WGS84)
	Address     string  `gorm:"type:text;not null" json:"address"`                // 주소
	PhotoRef    string  `json:"photo_ref,omitempty"`                              // 외부 저장 이미지 참조
	Version     int     `gorm:"not null;default:1" json:"version"`                // 낙관적 잠금 버전

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Filled only by explicit joins (FetchOptions)
	Ratings []Rating `gorm:"-" json:"ratings,omitempty"`
	Author  *User    `gorm:"-" json:"author,omitempty"`
}

func (Place) TableName() string {
	return "places"
}

// PlaceSummary is the projection returned by proximity queries
type PlaceSummary struct {
	ID             uint    `json:"id"`
	Slug           string  `json:"slug"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
	Address        string  `json:"address"`
	PhotoRef       string  `json:"photo_ref,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
}

func (p *Place) Summary(distance float64) PlaceSummary {
	return PlaceSummary{
		ID:             p.ID,
		Slug:           p.Slug,
		Name:           p.Name,
		Description:    p.Description,
		Longitude:      p.Longitude,
		Latitude:       p.Latitude,
		Address:        p.Address,
		PhotoRef:       p.PhotoRef,
		DistanceMeters: distance,
	}
}
