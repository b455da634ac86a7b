package model

import (
	"time"
)

// Room 공유 캔버스
type Room struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	CanvasWidth  int       `gorm:"not null" json:"canvas_width"`
	CanvasHeight int       `gorm:"not null" json:"canvas_height"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Strokes []Stroke `gorm:"foreignKey:RoomID" json:"strokes"`

	// 조회 시점에 계산되는 값 (저장하지 않음)
	StrokeCount  int `gorm:"-" json:"stroke_count"`
	WatcherCount int `gorm:"-" json:"watcher_count"`
}

func (Room) TableName() string {
	return "rooms"
}

// Token CSRF 토큰 (발급 후 TTL 동안만 유효, 삭제하지 않음)
type Token struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CSRFToken string    `gorm:"column:csrf_token;type:varchar(128);uniqueIndex;not null" json:"csrf_token"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Token) TableName() string {
	return "tokens"
}

// RoomOwner 방 생성자 토큰 (첫 획 권한 확인에만 사용)
type RoomOwner struct {
	RoomID  int64 `gorm:"primaryKey" json:"room_id"`
	TokenID int64 `gorm:"primaryKey" json:"token_id"`
}

func (RoomOwner) TableName() string {
	return "room_owners"
}

// RoomWatcher 시청자 heartbeat lease (room, token) 단위로 upsert
type RoomWatcher struct {
	RoomID    int64     `gorm:"primaryKey" json:"room_id"`
	TokenID   int64     `gorm:"primaryKey" json:"token_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (RoomWatcher) TableName() string {
	return "room_watchers"
}

// AllModels AutoMigrate 대상 테이블
func AllModels() []any {
	return []any{
		&Room{},
		&Token{},
		&RoomOwner{},
		&Stroke{},
		&Point{},
		&RoomWatcher{},
	}
}
