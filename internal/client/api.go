// Package client implements the browser-side protocol state machines as a
// Go library: a polling chat session and a whiteboard drawing session,
// both over the stateless HTTP wire protocol.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/dto"
)

// maxResponseLen bounds how much of a response body is read; snapshots
// dominate and stay under the server-side image cap.
const maxResponseLen = 8 << 20

// API is the HTTP client for the collaboration wire protocol. One API
// value represents one browser session: it carries the portal token and a
// generated session token that keys presence records.
type API struct {
	baseURL      string
	portalToken  string
	sessionToken string
	httpClient   *http.Client
	log          *logrus.Entry
}

// NewAPI creates an API instance for the given server and portal token.
func NewAPI(baseURL, portalToken string) *API {
	return &API{
		baseURL:      baseURL,
		portalToken:  portalToken,
		sessionToken: uuid.NewString(),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          logrus.WithField("component", "client_api"),
	}
}

// SessionToken returns this session's opaque presence identifier.
func (a *API) SessionToken() string {
	return a.sessionToken
}

// SendMessage posts one chat message to a room.
func (a *API) SendMessage(ctx context.Context, roomID uint, body string) error {
	var res struct{ dto.Envelope }
	path := fmt.Sprintf("/api/rooms/%d/messages", roomID)
	if err := a.call(ctx, http.MethodPost, path, dto.SendMessageRequest{Body: body}, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("send message: %s", res.Error)
	}
	return nil
}

// FetchLatest returns the most recent messages for the initial page load.
func (a *API) FetchLatest(ctx context.Context, roomID uint) ([]dto.MessagePayload, error) {
	var res dto.MessagesResponse
	path := fmt.Sprintf("/api/rooms/%d/messages", roomID)
	if err := a.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("fetch latest messages: %s", res.Error)
	}
	return res.Messages, nil
}

// FetchSince returns messages with id greater than afterID.
func (a *API) FetchSince(ctx context.Context, roomID uint, afterID uint64) ([]dto.MessagePayload, error) {
	var res dto.MessagesResponse
	path := fmt.Sprintf("/api/rooms/%d/messages?after_id=%s", roomID, strconv.FormatUint(afterID, 10))
	if err := a.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("fetch messages since %d: %s", afterID, res.Error)
	}
	return res.Messages, nil
}

// ListOnline returns the room's online-users panel.
func (a *API) ListOnline(ctx context.Context, roomID uint) ([]dto.OnlineUserPayload, error) {
	var res dto.OnlineUsersResponse
	path := fmt.Sprintf("/api/rooms/%d/online", roomID)
	if err := a.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("list online users: %s", res.Error)
	}
	return res.Users, nil
}

// SaveWhiteboard pushes a full snapshot (teacher only).
func (a *API) SaveWhiteboard(ctx context.Context, roomID uint, title, imageData string) error {
	var res struct{ dto.Envelope }
	path := fmt.Sprintf("/api/rooms/%d/whiteboard", roomID)
	req := dto.SaveWhiteboardRequest{Title: title, ImageData: imageData}
	if err := a.call(ctx, http.MethodPost, path, req, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("save whiteboard: %s", res.Error)
	}
	return nil
}

// LoadWhiteboard fetches the room's latest snapshot; empty means the room
// has never been drawn on.
func (a *API) LoadWhiteboard(ctx context.Context, roomID uint) (string, error) {
	var res dto.WhiteboardResponse
	path := fmt.Sprintf("/api/rooms/%d/whiteboard", roomID)
	if err := a.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("load whiteboard: %s", res.Error)
	}
	return res.ImageData, nil
}

// call performs one request/response round trip. Error responses still
// carry the envelope, so the body is decoded regardless of status; out
// must embed dto.Envelope.
func (a *API) call(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.portalToken)
	req.Header.Set("X-Session-Token", a.sessionToken)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	if err != nil {
		return fmt.Errorf("read response of %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response of %s %s (status %d): %w", method, path, resp.StatusCode, err)
	}
	return nil
}
