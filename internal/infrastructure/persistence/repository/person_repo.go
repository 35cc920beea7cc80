package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// AccompanyingPersonRepository implements port.AccompanyingPersonRepository
type AccompanyingPersonRepository struct {
	base
	logger *zap.Logger
}

// NewAccompanyingPersonRepository creates a new accompanying person repository
func NewAccompanyingPersonRepository(db *sql.DB, logger *zap.Logger) port.AccompanyingPersonRepository {
	return &AccompanyingPersonRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a person and sets its ID
func (r *AccompanyingPersonRepository) Create(ctx context.Context, person *entity.AccompanyingPerson) error {
	var docName, docKey string
	if person.IdentityDocument != nil {
		docName = person.IdentityDocument.FileName
		docKey = person.IdentityDocument.StorageKey
	}

	result, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO accompanying_persons (trip_data_id, full_name, document_name, document_key) VALUES (?, ?, ?, ?)`,
		person.TripDataID, person.FullName, docName, docKey,
	)
	if err != nil {
		r.logger.Error("Failed to create accompanying person",
			zap.Int64("trip_data_id", person.TripDataID), zap.Error(err))
		return fmt.Errorf("failed to create accompanying person: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	person.ID = id
	return nil
}

// GetByTripDataID returns the persons in insertion order
func (r *AccompanyingPersonRepository) GetByTripDataID(ctx context.Context, tripDataID int64) ([]entity.AccompanyingPerson, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, `
		SELECT id, trip_data_id, full_name, document_name, document_key
		FROM accompanying_persons
		WHERE trip_data_id = ?
		ORDER BY id ASC
	`, tripDataID)
	if err != nil {
		r.logger.Error("Failed to get accompanying persons", zap.Int64("trip_data_id", tripDataID), zap.Error(err))
		return nil, fmt.Errorf("failed to get accompanying persons: %w", err)
	}
	defer rows.Close()

	var persons []entity.AccompanyingPerson
	for rows.Next() {
		var p entity.AccompanyingPerson
		var docName, docKey string
		if err := rows.Scan(&p.ID, &p.TripDataID, &p.FullName, &docName, &docKey); err != nil {
			return nil, fmt.Errorf("failed to scan accompanying person: %w", err)
		}
		if docName != "" {
			p.IdentityDocument = &entity.Document{FileName: docName, StorageKey: docKey}
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// GetByID returns nil when no person has the ID
func (r *AccompanyingPersonRepository) GetByID(ctx context.Context, id int64) (*entity.AccompanyingPerson, error) {
	var p entity.AccompanyingPerson
	var docName, docKey string
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT id, trip_data_id, full_name, document_name, document_key FROM accompanying_persons WHERE id = ?`, id,
	).Scan(&p.ID, &p.TripDataID, &p.FullName, &docName, &docKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get accompanying person", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get accompanying person: %w", err)
	}
	if docName != "" {
		p.IdentityDocument = &entity.Document{FileName: docName, StorageKey: docKey}
	}
	return &p, nil
}

// DeleteByTripDataID removes every person of the trip data
func (r *AccompanyingPersonRepository) DeleteByTripDataID(ctx context.Context, tripDataID int64) error {
	_, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM accompanying_persons WHERE trip_data_id = ?`, tripDataID)
	if err != nil {
		r.logger.Error("Failed to delete accompanying persons", zap.Int64("trip_data_id", tripDataID), zap.Error(err))
		return fmt.Errorf("failed to delete accompanying persons: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.AccompanyingPersonRepository = (*AccompanyingPersonRepository)(nil)
