package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// MessageRepository implements port.MessageRepository
type MessageRepository struct {
	base
	logger *zap.Logger
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB, logger *zap.Logger) port.MessageRepository {
	return &MessageRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create stores a chatter message with its recipients
func (r *MessageRepository) Create(ctx context.Context, msg *entity.Message) error {
	query := `
		INSERT INTO messages (
			trip_id, author_id, subject, body, visibility, recipient_ids, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	recipients := msg.RecipientIDs
	if recipients == nil {
		recipients = []int64{}
	}
	recipientJSON, err := json.Marshal(recipients)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}

	result, err := r.exec(ctx).ExecContext(ctx, query,
		msg.TripID,
		msg.AuthorID,
		msg.Subject,
		msg.Body,
		string(msg.Visibility),
		string(recipientJSON),
		msg.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create message",
			zap.Int64("trip_id", msg.TripID),
			zap.Error(err))
		return fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// GetByTripID returns all messages on a trip, oldest first
func (r *MessageRepository) GetByTripID(ctx context.Context, tripID int64) ([]*entity.Message, error) {
	query := `
		SELECT id, trip_id, author_id, subject, body, visibility, recipient_ids, created_at
		FROM messages
		WHERE trip_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return r.query(ctx, query, tripID)
}

// FindRecent returns messages on the trip with the given visibility posted at or after since
func (r *MessageRepository) FindRecent(ctx context.Context, tripID int64, visibility entity.Visibility, since time.Time) ([]*entity.Message, error) {
	query := `
		SELECT id, trip_id, author_id, subject, body, visibility, recipient_ids, created_at
		FROM messages
		WHERE trip_id = ? AND visibility = ? AND created_at >= ?
		ORDER BY created_at ASC, id ASC
	`
	return r.query(ctx, query, tripID, string(visibility), since)
}

// RecordDelivery stores the outcome of notifying one recipient
func (r *MessageRepository) RecordDelivery(ctx context.Context, d *entity.Delivery) error {
	query := `
		INSERT INTO message_deliveries (
			message_id, recipient_id, status, error_message, sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	result, err := r.exec(ctx).ExecContext(ctx, query,
		d.MessageID,
		d.RecipientID,
		d.Status,
		d.Error,
		nullTime(d.SentAt),
		d.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record delivery",
			zap.Int64("message_id", d.MessageID),
			zap.Int64("recipient_id", d.RecipientID),
			zap.Error(err))
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

func (r *MessageRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Message, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query messages", zap.Error(err))
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		var msg entity.Message
		var visibility, recipients string
		if err := rows.Scan(
			&msg.ID,
			&msg.TripID,
			&msg.AuthorID,
			&msg.Subject,
			&msg.Body,
			&visibility,
			&recipients,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Visibility = entity.Visibility(visibility)
		if err := json.Unmarshal([]byte(recipients), &msg.RecipientIDs); err != nil {
			return nil, fmt.Errorf("failed to decode recipients of message %d: %w", msg.ID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Verify interface compliance
var _ port.MessageRepository = (*MessageRepository)(nil)
