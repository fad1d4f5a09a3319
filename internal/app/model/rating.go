package model

import (
	"time"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating 장소 평가 모델. 장소와 작성자는 참조만 한다 (cascade 삭제 없음)
type Rating struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PlaceID   uint      `gorm:"not null;index" json:"place_id"` // 장소 ID
	RaterID   uint      `gorm:"not null;index" json:"rater_id"` // 작성자 ID
	Text      string    `gorm:"type:text;not null" json:"text"` // 리뷰 내용
	Score     int       `gorm:"not null" json:"score"`          // 평점 (1-5)
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Rater *User `gorm:"-" json:"rater,omitempty"`
}

func (Rating) TableName() string {
	return "ratings"
}
