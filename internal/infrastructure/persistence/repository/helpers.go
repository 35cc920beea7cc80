package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/garyjia/business-trip/internal/infrastructure/persistence/sqlite"
)

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// base holds what every repository shares
type base struct {
	db *sql.DB
}

// exec returns the transaction carried by ctx, or the database outside one
func (b base) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, b.db)
}

// nullID stores zero ids as NULL
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
