package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
)

// DefaultFetchLimit caps how many messages a single poll returns.
const DefaultFetchLimit = 50

// ChatService implements the room-scoped message log: ordered append and
// cursor-based incremental retrieval. Room access is the caller's duty
// (the handler consults the portal's AccessChecker before invoking any of
// these); the log assumes the check already passed.
type ChatService struct {
	msgRepo  repository.MessageRepository
	presence *PresenceService
}

// NewChatService creates a ChatService instance.
func NewChatService(msgRepo repository.MessageRepository, presence *PresenceService) *ChatService {
	if msgRepo == nil {
		panic("MessageRepository cannot be nil for ChatService")
	}
	if presence == nil {
		panic("PresenceService cannot be nil for ChatService")
	}
	return &ChatService{msgRepo: msgRepo, presence: presence}
}

// Send validates and appends one message, assigning it the next per-room
// id. The send itself counts as room activity and touches presence.
func (s *ChatService) Send(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken, body string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID})

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is empty", ErrValidation)
	}
	if utf8.RuneCountInString(body) > domain.MaxMessageBodyLen {
		return nil, fmt.Errorf("%w: message body exceeds %d characters", ErrValidation, domain.MaxMessageBodyLen)
	}

	s.touch(ctx, user, roomID, sessionToken)

	msg := &domain.Message{
		RoomID:            roomID,
		AuthorID:          user.ID,
		AuthorDisplayName: user.DisplayName,
		AuthorRole:        user.Role,
		Body:              body,
	}
	if err := s.msgRepo.Append(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to append chat message")
		return nil, ErrInternalServer
	}
	logCtx.WithField("seq", msg.Seq).Debug("Chat message appended")
	return msg, nil
}

// FetchSince returns messages with id > afterSeq in ascending order, the
// sole mechanism for incremental sync. Polling counts as room activity.
func (s *ChatService) FetchSince(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string, afterSeq uint64, limit int) ([]domain.Message, error) {
	s.touch(ctx, user, roomID, sessionToken)

	msgs, err := s.msgRepo.FetchSince(ctx, roomID, afterSeq, normalizeLimit(limit))
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to fetch messages since cursor")
		return nil, ErrInternalServer
	}
	return msgs, nil
}

// FetchLatest returns the most recent messages in ascending order, used
// for the initial page load.
func (s *ChatService) FetchLatest(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string, limit int) ([]domain.Message, error) {
	s.touch(ctx, user, roomID, sessionToken)

	msgs, err := s.msgRepo.FetchLatest(ctx, roomID, normalizeLimit(limit))
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to fetch latest messages")
		return nil, ErrInternalServer
	}
	return msgs, nil
}

// ListOnline returns the room's online-users panel. The lookup is itself a
// poll, so it refreshes the caller's presence first.
func (s *ChatService) ListOnline(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string) ([]domain.OnlineUser, error) {
	s.touch(ctx, user, roomID, sessionToken)
	return s.presence.ListOnline(ctx, roomID, time.Now())
}

// touch records room activity. A failed touch only degrades the
// online-users panel, so it never fails the caller's operation.
func (s *ChatService) touch(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string) {
	if err := s.presence.Touch(ctx, user, roomID, sessionToken, time.Now()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID}).
			Warn("Failed to touch presence on chat activity")
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultFetchLimit {
		return DefaultFetchLimit
	}
	return limit
}
