package domain

import "time"

// MaxMessageBodyLen caps the length of a chat message body in characters.
const MaxMessageBodyLen = 500

// Message is one chat entry in a room. Messages are append-only: once
// created they are never mutated or deleted by this service.
type Message struct {
	ID                uint64    `gorm:"primaryKey"`                                  // surrogate key, not exposed on the wire
	RoomID            uint      `gorm:"uniqueIndex:idx_room_seq;not null"`           // course id
	Seq               uint64    `gorm:"uniqueIndex:idx_room_seq;not null"`           // per-room, strictly increasing; this is the wire-visible id
	AuthorID          uint      `gorm:"index;not null"`
	AuthorDisplayName string    `gorm:"size:191;not null"`
	AuthorRole        Role      `gorm:"size:20;not null"`
	Body              string    `gorm:"size:500;not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`
}
