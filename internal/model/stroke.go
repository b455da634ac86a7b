package model

import (
	"time"
)

// Stroke one committed drawing action. The ID is global across rooms and
// doubles as the stream resume cursor.
type Stroke struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    int64     `gorm:"not null;index:idx_strokes_room_id" json:"room_id"`
	Width     int       `gorm:"not null" json:"width"`
	Red       int       `gorm:"not null" json:"red"`
	Green     int       `gorm:"not null" json:"green"`
	Blue      int       `gorm:"not null" json:"blue"`
	Alpha     int       `gorm:"not null" json:"alpha"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations (write-once, ordered by point ID)
	Points []Point `gorm:"foreignKey:StrokeID" json:"points"`
}

func (Stroke) TableName() string {
	return "strokes"
}

// Point canvas-space vertex of a stroke
type Point struct {
	ID       int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	StrokeID int64   `gorm:"not null;index" json:"stroke_id"`
	X        float64 `gorm:"not null" json:"x"`
	Y        float64 `gorm:"not null" json:"y"`
}

func (Point) TableName() string {
	return "points"
}

// Color RGBA, each channel 0-255
type Color struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
	Alpha int `json:"alpha"`
}

// Valid reports whether every channel is within 0-255.
func (c Color) Valid() bool {
	for _, v := range [...]int{c.Red, c.Green, c.Blue, c.Alpha} {
		if v < 0 || v > 255 {
			return false
		}
	}
	return true
}

// Coord submitted point before it has an identity
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
