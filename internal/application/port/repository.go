package port

import (
	"context"
	"time"

	"github.com/garyjia/business-trip/internal/domain/entity"
)

// TripRepository defines persistence operations for TripRequest
type TripRepository interface {
	Create(ctx context.Context, trip *entity.TripRequest) error
	// GetByID returns nil, nil when the trip does not exist
	GetByID(ctx context.Context, id int64) (*entity.TripRequest, error)
	Update(ctx context.Context, trip *entity.TripRequest) error
	List(ctx context.Context, limit, offset int) ([]*entity.TripRequest, error)
}

// TripDataRepository defines persistence operations for TripData
type TripDataRepository interface {
	Create(ctx context.Context, data *entity.TripData) error
	GetByTripID(ctx context.Context, tripID int64) (*entity.TripData, error)
	GetByID(ctx context.Context, id int64) (*entity.TripData, error)
	// Update writes every column in one statement
	Update(ctx context.Context, data *entity.TripData) error
}

// AccompanyingPersonRepository defines persistence operations for AccompanyingPerson
type AccompanyingPersonRepository interface {
	Create(ctx context.Context, person *entity.AccompanyingPerson) error
	GetByID(ctx context.Context, id int64) (*entity.AccompanyingPerson, error)
	GetByTripDataID(ctx context.Context, tripDataID int64) ([]entity.AccompanyingPerson, error)
	DeleteByTripDataID(ctx context.Context, tripDataID int64) error
}

// FormRepository defines persistence operations for submitted-form records
type FormRepository interface {
	Create(ctx context.Context, form *entity.Form) error
	GetByUUID(ctx context.Context, uuid string) (*entity.Form, error)
	GetByTripID(ctx context.Context, tripID int64) (*entity.Form, error)
	SaveSubmission(ctx context.Context, id int64, data string, at time.Time) error
}

// HistoryRepository defines persistence operations for StatusHistory
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.StatusHistory) error
	GetByTripID(ctx context.Context, tripID int64) ([]*entity.StatusHistory, error)
}

// MessageRepository defines persistence operations for chatter messages
type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	GetByTripID(ctx context.Context, tripID int64) ([]*entity.Message, error)
	// FindRecent returns messages on the trip with the given visibility posted at or after since
	FindRecent(ctx context.Context, tripID int64, visibility entity.Visibility, since time.Time) ([]*entity.Message, error)
	RecordDelivery(ctx context.Context, d *entity.Delivery) error
}

// UserRepository is the identity collaborator
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	ListByGroup(ctx context.Context, group string) ([]*entity.User, error)
}

// ProjectRepository defines persistence operations for trip projects and tasks
type ProjectRepository interface {
	FindOrCreateProject(ctx context.Context, name string) (*entity.Project, error)
	GetTaskByTripID(ctx context.Context, tripID int64) (*entity.Task, error)
	CreateTask(ctx context.Context, task *entity.Task) error
	AddFollowers(ctx context.Context, taskID int64, userIDs []int64) error
}

// AttachmentRepository defines persistence operations for Attachment
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	Find(ctx context.Context, model string, recordID int64, field string) (*entity.Attachment, error)
	Delete(ctx context.Context, model string, recordID int64, field string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
