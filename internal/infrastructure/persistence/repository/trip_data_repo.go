package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// TripDataRepository implements port.TripDataRepository. The columns used
// for lookups are stored alongside the full record, which is kept as JSON.
type TripDataRepository struct {
	base
	logger *zap.Logger
}

// NewTripDataRepository creates a new trip data repository
func NewTripDataRepository(db *sql.DB, logger *zap.Logger) port.TripDataRepository {
	return &TripDataRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts the trip data and sets its ID
func (r *TripDataRepository) Create(ctx context.Context, data *entity.TripData) error {
	now := time.Now()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now
	}
	data.UpdatedAt = data.CreatedAt

	payload, err := encodeTripData(data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trip_data (trip_id, destination, travel_start_date, travel_end_date, currency, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.exec(ctx).ExecContext(ctx, query,
		data.TripID,
		data.Destination,
		nullTime(data.TravelStartDate),
		nullTime(data.TravelEndDate),
		data.Currency,
		payload,
		data.CreatedAt,
		data.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trip data", zap.Int64("trip_id", data.TripID), zap.Error(err))
		return fmt.Errorf("failed to create trip data: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	data.ID = id
	return nil
}

// GetByTripID returns nil when the trip has no data yet. Accompanying
// persons are loaded separately.
func (r *TripDataRepository) GetByTripID(ctx context.Context, tripID int64) (*entity.TripData, error) {
	return r.getOne(ctx, "trip_id", tripID)
}

// GetByID returns nil when no record has the ID
func (r *TripDataRepository) GetByID(ctx context.Context, id int64) (*entity.TripData, error) {
	return r.getOne(ctx, "id", id)
}

func (r *TripDataRepository) getOne(ctx context.Context, column string, value int64) (*entity.TripData, error) {
	var (
		id        int64
		tripID    int64
		payload   string
		createdAt time.Time
		updatedAt time.Time
	)
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT id, trip_id, data, created_at, updated_at FROM trip_data WHERE `+column+` = ?`, value,
	).Scan(&id, &tripID, &payload, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get trip data", zap.String(column, fmt.Sprint(value)), zap.Error(err))
		return nil, fmt.Errorf("failed to get trip data: %w", err)
	}

	var data entity.TripData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		r.logger.Error("Failed to decode trip data", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to decode trip data: %w", err)
	}
	data.ID = id
	data.TripID = tripID
	data.AccompanyingPersons = nil
	data.CreatedAt = createdAt
	data.UpdatedAt = updatedAt
	return &data, nil
}

// Update writes every column in one statement
func (r *TripDataRepository) Update(ctx context.Context, data *entity.TripData) error {
	data.UpdatedAt = time.Now()
	payload, err := encodeTripData(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE trip_data
		SET destination = ?, travel_start_date = ?, travel_end_date = ?, currency = ?, data = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.exec(ctx).ExecContext(ctx, query,
		data.Destination,
		nullTime(data.TravelStartDate),
		nullTime(data.TravelEndDate),
		data.Currency,
		payload,
		data.UpdatedAt,
		data.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update trip data", zap.Int64("id", data.ID), zap.Error(err))
		return fmt.Errorf("failed to update trip data: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("trip data %d: %w", data.ID, entity.ErrNotFound)
	}
	return nil
}

func encodeTripData(data *entity.TripData) (string, error) {
	snapshot := *data
	snapshot.AccompanyingPersons = nil
	payload, err := json.Marshal(&snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode trip data: %w", err)
	}
	return string(payload), nil
}

// Verify interface compliance
var _ port.TripDataRepository = (*TripDataRepository)(nil)
