package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"time"

	"github.com/garyjia/business-trip/internal/application/dispatcher"
	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/event"
	"github.com/garyjia/business-trip/internal/submission"
)

// SubmissionService turns form submissions into trip data
type SubmissionService interface {
	// Process records a submission posted to the form and replaces the trip
	// data with its extraction. It reports false without writing anything
	// when the payload is malformed or an empty placeholder.
	Process(ctx context.Context, formUUID string, raw []byte) (bool, error)

	// Document returns a stored document of a trip data or accompanying
	// person record. Only the owner, manager, organizer and finance of the
	// owning trip may read it.
	Document(ctx context.Context, actor *entity.User, model string, recordID int64, field string) (*entity.Attachment, []byte, error)
}

// SubmissionRepositories groups the stores a submission touches
type SubmissionRepositories struct {
	Trips       port.TripRepository
	Forms       port.FormRepository
	Data        port.TripDataRepository
	Persons     port.AccompanyingPersonRepository
	Attachments port.AttachmentRepository
}

type submissionServiceImpl struct {
	repos      SubmissionRepositories
	extractor  *submission.Extractor
	storage    port.FileStorage
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	repos SubmissionRepositories,
	extractor *submission.Extractor,
	storage port.FileStorage,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
) SubmissionService {
	return &submissionServiceImpl{
		repos:      repos,
		extractor:  extractor,
		storage:    storage,
		txManager:  txManager,
		dispatcher: d,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *submissionServiceImpl) Process(ctx context.Context, formUUID string, raw []byte) (bool, error) {
	form, err := s.repos.Forms.GetByUUID(ctx, formUUID)
	if err != nil {
		return false, fmt.Errorf("load form: %w", err)
	}
	if form == nil {
		return false, fmt.Errorf("form %s: %w", formUUID, entity.ErrNotFound)
	}

	result, ok, err := s.extractor.ProcessJSON(raw)
	if err != nil {
		// already logged by the extractor; the caller only sees the failure flag
		return false, nil
	}
	if !ok {
		s.logger.Info("Ignoring empty form submission", "form_uuid", formUUID)
		return false, nil
	}

	var data *entity.TripData
	writes := newDocumentWrites()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.now()
		if err := s.repos.Forms.SaveSubmission(txCtx, form.ID, string(raw), now); err != nil {
			return fmt.Errorf("save submission: %w", err)
		}

		data, err = s.repos.Data.GetByTripID(txCtx, form.TripID)
		if err != nil {
			return fmt.Errorf("load trip data: %w", err)
		}
		if data == nil {
			data = &entity.TripData{TripID: form.TripID, CreatedAt: now}
			if err := s.repos.Data.Create(txCtx, data); err != nil {
				return fmt.Errorf("create trip data: %w", err)
			}
		}

		result.Apply(data)
		data.UpdatedAt = now
		docs := data.Documents()
		for _, field := range entity.TripDataDocumentFields {
			if doc, ok := docs[field]; ok {
				s.storeDocument(txCtx, writes, entity.ModelTripData, data.ID, field, doc)
				continue
			}
			if err := s.unlinkDocument(txCtx, writes, entity.ModelTripData, data.ID, field); err != nil {
				return err
			}
		}
		if err := s.repos.Data.Update(txCtx, data); err != nil {
			return fmt.Errorf("update trip data: %w", err)
		}

		previous, err := s.repos.Persons.GetByTripDataID(txCtx, data.ID)
		if err != nil {
			return fmt.Errorf("load accompanying persons: %w", err)
		}
		for _, p := range previous {
			if err := s.unlinkDocument(txCtx, writes, entity.ModelAccompanyingPerson, p.ID, entity.FieldIdentityDocument); err != nil {
				return err
			}
		}
		if err := s.repos.Persons.DeleteByTripDataID(txCtx, data.ID); err != nil {
			return fmt.Errorf("delete accompanying persons: %w", err)
		}
		for i := range data.AccompanyingPersons {
			person := &data.AccompanyingPersons[i]
			doc := person.IdentityDocument
			if doc != nil {
				// the key needs the person's id, so the document is linked after insert
				person.IdentityDocument = &entity.Document{FileName: doc.FileName}
			}
			if err := s.repos.Persons.Create(txCtx, person); err != nil {
				return fmt.Errorf("create accompanying person: %w", err)
			}
			if doc != nil {
				s.storeDocument(txCtx, writes, entity.ModelAccompanyingPerson, person.ID, entity.FieldIdentityDocument, doc)
				person.IdentityDocument = doc
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to write extracted trip data", "form_uuid", formUUID, "trip_id", form.TripID, "error", err)
		s.removeDocuments(ctx, writes.created)
		return false, err
	}
	s.removeDocuments(ctx, writes.stale())

	s.logger.Info("Form submission processed",
		"form_uuid", formUUID,
		"trip_id", form.TripID,
		"accompanying_persons", len(data.AccompanyingPersons),
		"transport", result.Outbound.Labels(),
		"return_transport", result.Return.Labels())
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeSubmissionProcessed, form.TripID, 0, map[string]interface{}{
			"form_uuid":            formUUID,
			"accompanying_persons": len(data.AccompanyingPersons),
		}))
	}
	return true, nil
}

// documentWrites tracks the files one submission touches. Created files
// are removed again when the transaction fails and replaced files once it
// commits.
type documentWrites struct {
	created  []string
	written  map[string]bool
	replaced []string
}

func newDocumentWrites() *documentWrites {
	return &documentWrites{written: make(map[string]bool)}
}

// stale returns the replaced files this submission did not write again
func (w *documentWrites) stale() []string {
	var keys []string
	for _, key := range w.replaced {
		if key != "" && !w.written[key] {
			keys = append(keys, key)
		}
	}
	return keys
}

// storeDocument writes the document content to storage and links it to the
// record field. A failure leaves the document name without a stored file.
func (s *submissionServiceImpl) storeDocument(ctx context.Context, writes *documentWrites, model string, recordID int64, field string, doc *entity.Document) {
	if doc == nil || len(doc.Content) == 0 {
		return
	}
	if doc.FileName == "" {
		doc.FileName = field
	}

	key := path.Join(model, fmt.Sprint(recordID), field, filepath.Base(doc.FileName))
	existed := s.storage.Exists(ctx, key)
	if err := s.storage.Save(ctx, key, doc.Content); err != nil {
		s.logger.Warn("Failed to store document", "model", model, "record_id", recordID, "field", field, "error", err)
		return
	}
	if !existed {
		writes.created = append(writes.created, key)
	}
	writes.written[key] = true
	doc.StorageKey = key

	previous, err := s.repos.Attachments.Find(ctx, model, recordID, field)
	if err != nil {
		s.logger.Warn("Failed to look up previous attachment", "model", model, "record_id", recordID, "error", err)
	}
	if previous != nil {
		writes.replaced = append(writes.replaced, previous.FilePath)
	}
	if err := s.repos.Attachments.Delete(ctx, model, recordID, field); err != nil {
		s.logger.Warn("Failed to unlink previous attachment", "model", model, "record_id", recordID, "error", err)
	}
	att := &entity.Attachment{
		Model:     model,
		RecordID:  recordID,
		Field:     field,
		FileName:  doc.FileName,
		FilePath:  key,
		FileSize:  int64(len(doc.Content)),
		MimeType:  mime.TypeByExtension(filepath.Ext(doc.FileName)),
		CreatedAt: s.now(),
	}
	if err := s.repos.Attachments.Create(ctx, att); err != nil {
		s.logger.Warn("Failed to link attachment", "model", model, "record_id", recordID, "field", field, "error", err)
	}
}

// unlinkDocument drops the attachment of a field that no longer holds a
// document. Its file is removed after commit.
func (s *submissionServiceImpl) unlinkDocument(ctx context.Context, writes *documentWrites, model string, recordID int64, field string) error {
	att, err := s.repos.Attachments.Find(ctx, model, recordID, field)
	if err != nil {
		return fmt.Errorf("find attachment: %w", err)
	}
	if att == nil {
		return nil
	}
	if err := s.repos.Attachments.Delete(ctx, model, recordID, field); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	writes.replaced = append(writes.replaced, att.FilePath)
	return nil
}

func (s *submissionServiceImpl) removeDocuments(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to remove document", "key", key, "error", err)
		}
	}
}

func (s *submissionServiceImpl) Document(ctx context.Context, actor *entity.User, model string, recordID int64, field string) (*entity.Attachment, []byte, error) {
	trip, err := s.owningTrip(ctx, model, recordID)
	if err != nil {
		return nil, nil, err
	}
	flags := entity.ComputeRoleFlags(actor, trip)
	if !flags.IsOwner && !flags.IsManager && !flags.IsOrganizer && !flags.IsFinance {
		return nil, nil, entity.Forbidden("download document", "documents of trip %d are not visible to you", trip.ID)
	}

	att, err := s.repos.Attachments.Find(ctx, model, recordID, field)
	if err != nil {
		return nil, nil, fmt.Errorf("find attachment: %w", err)
	}
	if att == nil {
		return nil, nil, fmt.Errorf("%s/%d/%s: %w", model, recordID, field, entity.ErrNotFound)
	}

	content, err := s.storage.Read(ctx, att.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("document %s: %w", att.FilePath, entity.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}
	return att, content, nil
}

// owningTrip resolves the trip a trip data or accompanying person record belongs to
func (s *submissionServiceImpl) owningTrip(ctx context.Context, model string, recordID int64) (*entity.TripRequest, error) {
	var dataID int64
	switch model {
	case entity.ModelTripData:
		dataID = recordID
	case entity.ModelAccompanyingPerson:
		person, err := s.repos.Persons.GetByID(ctx, recordID)
		if err != nil {
			return nil, fmt.Errorf("load accompanying person: %w", err)
		}
		if person == nil {
			return nil, fmt.Errorf("%s/%d: %w", model, recordID, entity.ErrNotFound)
		}
		dataID = person.TripDataID
	default:
		return nil, fmt.Errorf("model %q: %w", model, entity.ErrNotFound)
	}

	data, err := s.repos.Data.GetByID(ctx, dataID)
	if err != nil {
		return nil, fmt.Errorf("load trip data: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%s/%d: %w", model, recordID, entity.ErrNotFound)
	}
	trip, err := s.repos.Trips.GetByID(ctx, data.TripID)
	if err != nil {
		return nil, fmt.Errorf("load trip: %w", err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %d: %w", data.TripID, entity.ErrNotFound)
	}
	return trip, nil
}
