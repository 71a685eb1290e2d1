package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/dto"
)

// Default polling cadence of a chat view.
const (
	DefaultMessagePollInterval  = 3 * time.Second
	DefaultPresencePollInterval = 10 * time.Second
)

// ErrSessionAlreadyStarted is returned by Start on a running session.
var ErrSessionAlreadyStarted = errors.New("client: session already started")

// ChatView receives state changes from a ChatSession. Calls arrive
// serialized; implementations render, they do not call back into the
// session.
type ChatView interface {
	// AppendMessages delivers new messages in strictly increasing id
	// order, never repeating an id.
	AppendMessages(msgs []dto.MessagePayload)
	// SetOnlineUsers replaces the online-users panel.
	SetOnlineUsers(users []dto.OnlineUserPayload)
	// SetSending disables (true) or re-enables (false) the input field.
	SetSending(sending bool)
	// ShowSendError surfaces a failed send; polling errors never reach
	// the view.
	ShowSendError(err error)
}

// ChatSessionConfig tunes the polling cadence; zero values take defaults.
type ChatSessionConfig struct {
	MessagePollInterval  time.Duration
	PresencePollInterval time.Duration
}

// ChatSession is the client-side chat state machine: a send path and two
// independent polling loops (messages, online users) composed over the
// wire API. Sends are not optimistically rendered; the send triggers an
// immediate fetch so the server's id order stays the single source of
// truth for display.
type ChatSession struct {
	api    *API
	roomID uint
	view   ChatView
	cfg    ChatSessionConfig
	log    *logrus.Entry

	mu         sync.Mutex
	lastSeenID uint64
	started    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewChatSession creates a ChatSession instance.
func NewChatSession(api *API, roomID uint, view ChatView, cfg ChatSessionConfig) *ChatSession {
	if api == nil {
		panic("API cannot be nil for ChatSession")
	}
	if view == nil {
		panic("ChatView cannot be nil for ChatSession")
	}
	if cfg.MessagePollInterval <= 0 {
		cfg.MessagePollInterval = DefaultMessagePollInterval
	}
	if cfg.PresencePollInterval <= 0 {
		cfg.PresencePollInterval = DefaultPresencePollInterval
	}
	return &ChatSession{
		api:    api,
		roomID: roomID,
		view:   view,
		cfg:    cfg,
		log:    logrus.WithFields(logrus.Fields{"component": "chat_session", "room_id": roomID}),
	}
}

// Start performs the initial load and launches the polling loops. The
// returned error covers only startup; poll failures are logged and
// retried on the next tick. Stop releases the timers.
func (s *ChatSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSessionAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	// Initial page load: the latest window, not an incremental fetch.
	msgs, err := s.api.FetchLatest(ctx, s.roomID)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}
	s.deliver(msgs)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(2)
	go s.messageLoop(runCtx)
	go s.presenceLoop(runCtx)
	return nil
}

// Stop cancels the polling loops and waits for them to exit.
func (s *ChatSession) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.started = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Send submits one message. The input stays disabled for the duration;
// on success the just-sent message is confirmed through an immediate
// fetch rather than echoed locally. Failures re-enable the input and are
// surfaced; the session never retries a send on its own.
func (s *ChatSession) Send(ctx context.Context, body string) error {
	s.view.SetSending(true)
	defer s.view.SetSending(false)

	if err := s.api.SendMessage(ctx, s.roomID, body); err != nil {
		s.view.ShowSendError(err)
		return err
	}
	s.pollMessages(ctx)
	return nil
}

// LastSeenID returns the highest message id observed so far.
func (s *ChatSession) LastSeenID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenID
}

func (s *ChatSession) messageLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.MessagePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollMessages(ctx)
		}
	}
}

func (s *ChatSession) presenceLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PresencePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			users, err := s.api.ListOnline(ctx, s.roomID)
			if err != nil {
				s.log.WithError(err).Debug("Online users poll failed, retrying next tick")
				continue
			}
			s.view.SetOnlineUsers(users)
		}
	}
}

func (s *ChatSession) pollMessages(ctx context.Context) {
	msgs, err := s.api.FetchSince(ctx, s.roomID, s.LastSeenID())
	if err != nil {
		// Silent for the user; the next tick retries.
		s.log.WithError(err).Debug("Message poll failed, retrying next tick")
		return
	}
	s.deliver(msgs)
}

// deliver appends new messages and advances the cursor. The lock is held
// across the view call so concurrent completions (a slow poll racing a
// post-send fetch) cannot interleave renders; the cursor is a monotonic
// max and never regresses, so a late response replaying older ids
// delivers nothing.
func (s *ChatSession) deliver(msgs []dto.MessagePayload) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]dto.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		if m.ID <= s.lastSeenID {
			continue
		}
		fresh = append(fresh, m)
		s.lastSeenID = m.ID
	}
	if len(fresh) > 0 {
		s.view.AppendMessages(fresh)
	}
}
