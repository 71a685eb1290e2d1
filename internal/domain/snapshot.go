package domain

import "time"

// WhiteboardSnapshot is the single live drawing state for a room. The
// unique index on RoomID realizes the at-most-one-snapshot-per-room
// invariant: every teacher save overwrites the existing row, last writer
// wins. ImageData is an opaque encoded raster blob (base64 PNG data URL in
// practice); a "clear" is simply a save of a blank canvas.
type WhiteboardSnapshot struct {
	ID              uint      `gorm:"primaryKey"`
	RoomID          uint      `gorm:"uniqueIndex;not null"`
	AuthorTeacherID uint      `gorm:"index;not null"`
	Title           string    `gorm:"size:191"`
	ImageData       string    `gorm:"type:longtext;not null"`
	IsActive        bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}
