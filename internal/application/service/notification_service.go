package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/pkg/utils"
)

// NotificationService posts chatter messages on trips and delivers them
type NotificationService interface {
	// PostPublic posts a message every follower can read
	PostPublic(ctx context.Context, trip *entity.TripRequest, authorID int64, body string, recipientIDs ...int64) error

	// PostConfidential posts a message only its recipients and admins can read.
	// Without explicit recipients it goes to the manager, the organizer and the
	// author. An identical message posted within the dedupe window is skipped.
	PostConfidential(ctx context.Context, trip *entity.TripRequest, authorID int64, body string, recipientIDs ...int64) error

	// Messages lists the trip's messages the viewer may read
	Messages(ctx context.Context, tripID int64, viewer *entity.User) ([]*entity.Message, error)
}

type notificationServiceImpl struct {
	messageRepo port.MessageRepository
	userRepo    port.UserRepository
	notifier    port.Notifier
	dedupe      time.Duration
	logger      Logger
	now         func() time.Time
}

// NewNotificationService creates a new NotificationService. notifier may be nil,
// in which case messages are only recorded.
func NewNotificationService(
	messageRepo port.MessageRepository,
	userRepo port.UserRepository,
	notifier port.Notifier,
	dedupeWindow time.Duration,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		dedupe:      dedupeWindow,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *notificationServiceImpl) PostPublic(ctx context.Context, trip *entity.TripRequest, authorID int64, body string, recipientIDs ...int64) error {
	msg := &entity.Message{
		TripID:       trip.ID,
		AuthorID:     authorID,
		Subject:      trip.Name,
		Body:         body,
		Visibility:   entity.VisibilityPublic,
		RecipientIDs: uniqueIDs(recipientIDs),
		CreatedAt:    s.now(),
	}
	return s.post(ctx, msg)
}

func (s *notificationServiceImpl) PostConfidential(ctx context.Context, trip *entity.TripRequest, authorID int64, body string, recipientIDs ...int64) error {
	if len(recipientIDs) == 0 {
		recipientIDs = []int64{trip.ManagerID, trip.OrganizerID, authorID}
	}
	msg := &entity.Message{
		TripID:       trip.ID,
		AuthorID:     authorID,
		Subject:      fmt.Sprintf("%s (confidential)", trip.Name),
		Body:         body,
		Visibility:   entity.VisibilityConfidential,
		RecipientIDs: uniqueIDs(recipientIDs),
		CreatedAt:    s.now(),
	}

	dup, err := s.isDuplicate(ctx, msg)
	if err != nil {
		s.logger.Warn("Confidential dedupe lookup failed, posting anyway", "trip_id", trip.ID, "error", err)
	}
	if dup {
		s.logger.Info("Skipping duplicate confidential message", "trip_id", trip.ID)
		return nil
	}
	return s.post(ctx, msg)
}

// isDuplicate compares the plain text of recent confidential messages
func (s *notificationServiceImpl) isDuplicate(ctx context.Context, msg *entity.Message) (bool, error) {
	if s.dedupe <= 0 {
		return false, nil
	}
	recent, err := s.messageRepo.FindRecent(ctx, msg.TripID, entity.VisibilityConfidential, msg.CreatedAt.Add(-s.dedupe))
	if err != nil {
		return false, err
	}
	text := utils.StripHTML(msg.Body)
	for _, m := range recent {
		if utils.StripHTML(m.Body) == text {
			return true, nil
		}
	}
	return false, nil
}

func (s *notificationServiceImpl) post(ctx context.Context, msg *entity.Message) error {
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to record message", "trip_id", msg.TripID, "error", err)
		return fmt.Errorf("create message: %w", err)
	}

	if s.notifier == nil {
		return nil
	}
	for _, id := range msg.RecipientIDs {
		if id == msg.AuthorID {
			continue
		}
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil || user == nil {
			s.logger.Warn("Message recipient not found", "trip_id", msg.TripID, "user_id", id, "error", err)
			continue
		}
		s.deliver(ctx, user, msg)
	}
	return nil
}

// deliver pushes the message to one recipient and records the outcome
func (s *notificationServiceImpl) deliver(ctx context.Context, user *entity.User, msg *entity.Message) {
	d := &entity.Delivery{MessageID: msg.ID, RecipientID: user.ID, Status: entity.DeliveryPending, CreatedAt: s.now()}
	if err := s.notifier.Notify(ctx, user, msg); err != nil {
		s.logger.Warn("Message delivery failed",
			"trip_id", msg.TripID,
			"user_id", user.ID,
			"visibility", msg.Visibility,
			"error", err)
		d.Status = entity.DeliveryFailed
		d.Error = err.Error()
	} else {
		sent := s.now()
		d.Status = entity.DeliverySent
		d.SentAt = &sent
	}
	if err := s.messageRepo.RecordDelivery(ctx, d); err != nil {
		s.logger.Warn("Failed to record delivery", "message_id", msg.ID, "user_id", user.ID, "error", err)
	}
}

func (s *notificationServiceImpl) Messages(ctx context.Context, tripID int64, viewer *entity.User) ([]*entity.Message, error) {
	all, err := s.messageRepo.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	visible := make([]*entity.Message, 0, len(all))
	for _, m := range all {
		if canRead(m, viewer) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

func canRead(m *entity.Message, viewer *entity.User) bool {
	if m.Visibility != entity.VisibilityConfidential {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.IsAdmin() || m.AuthorID == viewer.ID {
		return true
	}
	for _, id := range m.RecipientIDs {
		if id == viewer.ID {
			return true
		}
	}
	return false
}

// uniqueIDs drops zero and repeated ids, keeping order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
