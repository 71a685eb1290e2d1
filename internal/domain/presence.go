package domain

import "time"

// Presence windows. A record counts as online while its last activity is
// within OnlineWindow; records idle longer than StaleWindow are purged.
const (
	OnlineWindow = 2 * time.Minute
	StaleWindow  = 5 * time.Minute
)

// PresenceRecord tracks one browser session's liveness in one room.
// At most one record exists per (user, room, session token); every poll
// from that session upserts it.
type PresenceRecord struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"uniqueIndex:idx_presence_identity;not null"`
	RoomID         uint      `gorm:"uniqueIndex:idx_presence_identity;index:idx_room_activity;not null"`
	SessionToken   string    `gorm:"uniqueIndex:idx_presence_identity;size:191;not null"` // opaque per-browser-session identifier
	DisplayName    string    `gorm:"size:191;not null"`
	Role           Role      `gorm:"size:20;not null"`
	LastActivityAt time.Time `gorm:"index:idx_room_activity;not null"`
	IsOnline       bool      `gorm:"not null"`
}

// OnlineUser is one deduplicated entry in a room's online-users panel.
type OnlineUser struct {
	UserID      uint
	DisplayName string
	Role        Role
}
