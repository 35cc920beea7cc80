package port

import (
	"context"

	"github.com/garyjia/business-trip/internal/domain/entity"
)

// Notifier delivers a posted chatter message to its recipients outside the app
type Notifier interface {
	Notify(ctx context.Context, recipient *entity.User, msg *entity.Message) error
}

// FileStorage defines document storage operations
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}

// LedgerRow is one trip line of the finance ledger
type LedgerRow struct {
	Trip      *entity.TripRequest
	Employee  string
	Manager   string
	Organizer string
	PlanItems []entity.PlanLineItem
}

// LedgerWriter renders ledger rows into a spreadsheet
type LedgerWriter interface {
	Write(rows []LedgerRow) ([]byte, error)
}
