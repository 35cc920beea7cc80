package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

const formColumns = `id, uuid, trip_id, title, state, submission_data, submitted_at, created_at, updated_at`

// FormRepository implements port.FormRepository
type FormRepository struct {
	base
	logger *zap.Logger
}

// NewFormRepository creates a new form repository
func NewFormRepository(db *sql.DB, logger *zap.Logger) port.FormRepository {
	return &FormRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a form record
func (r *FormRepository) Create(ctx context.Context, form *entity.Form) error {
	if form.CreatedAt.IsZero() {
		form.CreatedAt = time.Now()
	}
	form.UpdatedAt = form.CreatedAt
	if form.State == "" {
		form.State = entity.FormStatePending
	}

	result, err := r.exec(ctx).ExecContext(ctx, `
		INSERT INTO forms (uuid, trip_id, title, state, submission_data, submitted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		form.UUID,
		form.TripID,
		form.Title,
		form.State,
		form.SubmissionData,
		nullTime(form.SubmittedAt),
		form.CreatedAt,
		form.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create form", zap.String("uuid", form.UUID), zap.Error(err))
		return fmt.Errorf("failed to create form: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	form.ID = id
	return nil
}

// GetByUUID returns nil when no form has the uuid
func (r *FormRepository) GetByUUID(ctx context.Context, uuid string) (*entity.Form, error) {
	return r.getOne(ctx, `SELECT `+formColumns+` FROM forms WHERE uuid = ?`, uuid)
}

// GetByTripID returns nil when the trip has no form
func (r *FormRepository) GetByTripID(ctx context.Context, tripID int64) (*entity.Form, error) {
	return r.getOne(ctx, `SELECT `+formColumns+` FROM forms WHERE trip_id = ?`, tripID)
}

// SaveSubmission stores the raw submission and marks the form submitted
func (r *FormRepository) SaveSubmission(ctx context.Context, id int64, data string, at time.Time) error {
	_, err := r.exec(ctx).ExecContext(ctx, `
		UPDATE forms SET submission_data = ?, state = ?, submitted_at = ?, updated_at = ?
		WHERE id = ?
	`, data, entity.FormStateSubmitted, at, at, id)
	if err != nil {
		r.logger.Error("Failed to save form submission", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to save form submission: %w", err)
	}
	return nil
}

func (r *FormRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.Form, error) {
	var f entity.Form
	var submittedAt sql.NullTime
	err := r.exec(ctx).QueryRowContext(ctx, query, arg).Scan(
		&f.ID,
		&f.UUID,
		&f.TripID,
		&f.Title,
		&f.State,
		&f.SubmissionData,
		&submittedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get form", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	f.SubmittedAt = timePtr(submittedAt)
	return &f, nil
}

// Verify interface compliance
var _ port.FormRepository = (*FormRepository)(nil)
