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

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	base
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create creates a new attachment record
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO attachments (
			model, record_id, field, file_name, file_path, file_size, mime_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now()
	}

	result, err := r.exec(ctx).ExecContext(ctx, query,
		att.Model,
		att.RecordID,
		att.Field,
		att.FileName,
		att.FilePath,
		att.FileSize,
		att.MimeType,
		att.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment",
			zap.String("model", att.Model),
			zap.Int64("record_id", att.RecordID),
			zap.String("field", att.Field),
			zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// Find returns the attachment stored for a record field, or nil
func (r *AttachmentRepository) Find(ctx context.Context, model string, recordID int64, field string) (*entity.Attachment, error) {
	query := `
		SELECT id, model, record_id, field, file_name, file_path, file_size, mime_type, created_at
		FROM attachments
		WHERE model = ? AND record_id = ? AND field = ?
	`

	var att entity.Attachment
	err := r.exec(ctx).QueryRowContext(ctx, query, model, recordID, field).Scan(
		&att.ID,
		&att.Model,
		&att.RecordID,
		&att.Field,
		&att.FileName,
		&att.FilePath,
		&att.FileSize,
		&att.MimeType,
		&att.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get attachment",
			zap.String("model", model),
			zap.Int64("record_id", recordID),
			zap.String("field", field),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return &att, nil
}

// Delete removes the attachment of one record field
func (r *AttachmentRepository) Delete(ctx context.Context, model string, recordID int64, field string) error {
	_, err := r.exec(ctx).ExecContext(ctx,
		`DELETE FROM attachments WHERE model = ? AND record_id = ? AND field = ?`,
		model, recordID, field,
	)
	if err != nil {
		r.logger.Error("Failed to delete attachment",
			zap.String("model", model),
			zap.Int64("record_id", recordID),
			zap.String("field", field),
			zap.Error(err))
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
