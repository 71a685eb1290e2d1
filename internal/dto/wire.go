// Package dto defines the wire types shared by the HTTP handlers and the
// client library. Every response uses the same envelope: {success, ...,
// error?}.
package dto

import "time"

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SendMessageRequest is the body of a chat send.
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// MessagePayload is one chat message as rendered to clients. ID is the
// per-room sequence number, strictly increasing in insertion order.
type MessagePayload struct {
	ID                uint64    `json:"id"`
	AuthorDisplayName string    `json:"author_display_name"`
	AuthorRole        string    `json:"author_role"`
	Body              string    `json:"body"`
	CreatedAt         time.Time `json:"created_at"`
}

// MessagesResponse answers both fetch-since and fetch-latest.
type MessagesResponse struct {
	Envelope
	Messages []MessagePayload `json:"messages"`
}

// OnlineUserPayload is one entry in the online-users panel.
type OnlineUserPayload struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// OnlineUsersResponse answers the list-online-users poll.
type OnlineUsersResponse struct {
	Envelope
	Users []OnlineUserPayload `json:"users"`
}

// SaveWhiteboardRequest is the body of a teacher snapshot push.
type SaveWhiteboardRequest struct {
	Title     string `json:"title"`
	ImageData string `json:"image_data" binding:"required"`
}

// WhiteboardResponse answers a whiteboard load. ImageData is empty when
// the room has never been drawn on.
type WhiteboardResponse struct {
	Envelope
	ImageData string `json:"image_data"`
}
