package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	base
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, h *entity.StatusHistory) error {
	query := `
		INSERT INTO status_history (
			trip_id, actor_id, previous_status, new_status, action, note, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}

	result, err := r.exec(ctx).ExecContext(ctx, query,
		h.TripID,
		h.ActorID,
		h.PreviousStatus,
		h.NewStatus,
		h.Action,
		h.Note,
		h.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Int64("trip_id", h.TripID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	h.ID = id
	return nil
}

// GetByTripID retrieves all history records for a trip, oldest first
func (r *HistoryRepository) GetByTripID(ctx context.Context, tripID int64) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, trip_id, actor_id, previous_status, new_status, action, note, timestamp
		FROM status_history
		WHERE trip_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, tripID)
	if err != nil {
		r.logger.Error("Failed to get history by trip ID", zap.Int64("trip_id", tripID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.StatusHistory
	for rows.Next() {
		var record entity.StatusHistory
		err := rows.Scan(
			&record.ID,
			&record.TripID,
			&record.ActorID,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Action,
			&record.Note,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
