package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/business-trip/internal/application/dispatcher"
	"github.com/garyjia/business-trip/internal/application/port"
	wf "github.com/garyjia/business-trip/internal/application/workflow"
	"github.com/garyjia/business-trip/internal/domain/entity"
)

var errStore = errors.New("store unavailable")

// memTripRepo hands out copies so uncommitted changes never leak into the store
type memTripRepo struct {
	trips  map[int64]*entity.TripRequest
	nextID int64
}

func (m *memTripRepo) Create(ctx context.Context, trip *entity.TripRequest) error {
	m.nextID++
	trip.ID = m.nextID
	cp := *trip
	m.trips[trip.ID] = &cp
	return nil
}

func (m *memTripRepo) GetByID(ctx context.Context, id int64) (*entity.TripRequest, error) {
	trip, ok := m.trips[id]
	if !ok {
		return nil, nil
	}
	cp := *trip
	return &cp, nil
}

func (m *memTripRepo) Update(ctx context.Context, trip *entity.TripRequest) error {
	cp := *trip
	cp.Data = nil
	m.trips[trip.ID] = &cp
	return nil
}

func (m *memTripRepo) List(ctx context.Context, limit, offset int) ([]*entity.TripRequest, error) {
	ids := make([]int64, 0, len(m.trips))
	for id := range m.trips {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*entity.TripRequest
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		cp := *m.trips[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}

type memDataRepo struct {
	data      map[int64]*entity.TripData
	nextID    int64
	updateErr error
	updates   int
}

func (m *memDataRepo) Create(ctx context.Context, data *entity.TripData) error {
	m.nextID++
	data.ID = m.nextID
	cp := *data
	m.data[data.TripID] = &cp
	return nil
}

func (m *memDataRepo) GetByTripID(ctx context.Context, tripID int64) (*entity.TripData, error) {
	d, ok := m.data[tripID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDataRepo) GetByID(ctx context.Context, id int64) (*entity.TripData, error) {
	for _, d := range m.data {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDataRepo) Update(ctx context.Context, data *entity.TripData) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	cp := *data
	cp.AccompanyingPersons = nil
	m.data[data.TripID] = &cp
	return nil
}

type memPersonRepo struct {
	persons map[int64][]entity.AccompanyingPerson
	nextID  int64
	deletes int
}

func (m *memPersonRepo) Create(ctx context.Context, person *entity.AccompanyingPerson) error {
	m.nextID++
	person.ID = m.nextID
	m.persons[person.TripDataID] = append(m.persons[person.TripDataID], *person)
	return nil
}

func (m *memPersonRepo) GetByID(ctx context.Context, id int64) (*entity.AccompanyingPerson, error) {
	for _, persons := range m.persons {
		for _, p := range persons {
			if p.ID == id {
				cp := p
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (m *memPersonRepo) GetByTripDataID(ctx context.Context, tripDataID int64) ([]entity.AccompanyingPerson, error) {
	return append([]entity.AccompanyingPerson(nil), m.persons[tripDataID]...), nil
}

func (m *memPersonRepo) DeleteByTripDataID(ctx context.Context, tripDataID int64) error {
	m.deletes++
	delete(m.persons, tripDataID)
	return nil
}

type memFormRepo struct {
	forms  map[string]*entity.Form
	nextID int64
}

func (m *memFormRepo) Create(ctx context.Context, form *entity.Form) error {
	m.nextID++
	form.ID = m.nextID
	cp := *form
	m.forms[form.UUID] = &cp
	return nil
}

func (m *memFormRepo) GetByUUID(ctx context.Context, uuid string) (*entity.Form, error) {
	f, ok := m.forms[uuid]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *memFormRepo) GetByTripID(ctx context.Context, tripID int64) (*entity.Form, error) {
	for _, f := range m.forms {
		if f.TripID == tripID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memFormRepo) SaveSubmission(ctx context.Context, id int64, data string, at time.Time) error {
	for _, f := range m.forms {
		if f.ID == id {
			f.SubmissionData = data
			f.State = entity.FormStateSubmitted
			f.SubmittedAt = &at
			return nil
		}
	}
	return entity.ErrNotFound
}

type memHistoryRepo struct {
	records []*entity.StatusHistory
}

func (m *memHistoryRepo) Create(ctx context.Context, h *entity.StatusHistory) error {
	m.records = append(m.records, h)
	return nil
}

func (m *memHistoryRepo) GetByTripID(ctx context.Context, tripID int64) ([]*entity.StatusHistory, error) {
	var out []*entity.StatusHistory
	for _, h := range m.records {
		if h.TripID == tripID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memMessageRepo struct {
	messages   []*entity.Message
	deliveries []*entity.Delivery
	createErr  error
}

func (m *memMessageRepo) Create(ctx context.Context, msg *entity.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memMessageRepo) GetByTripID(ctx context.Context, tripID int64) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, msg := range m.messages {
		if msg.TripID == tripID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) FindRecent(ctx context.Context, tripID int64, visibility entity.Visibility, since time.Time) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, msg := range m.messages {
		if msg.TripID == tripID && msg.Visibility == visibility && !msg.CreatedAt.Before(since) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) RecordDelivery(ctx context.Context, d *entity.Delivery) error {
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *memMessageRepo) confidential() []*entity.Message {
	var out []*entity.Message
	for _, msg := range m.messages {
		if msg.Visibility == entity.VisibilityConfidential {
			out = append(out, msg)
		}
	}
	return out
}

type memUserRepo struct {
	users map[int64]*entity.User
}

func (m *memUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return m.users[id], nil
}

func (m *memUserRepo) ListByGroup(ctx context.Context, group string) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.HasGroup(group) {
			out = append(out, u)
		}
	}
	return out, nil
}

type memProjectRepo struct {
	projects  map[string]*entity.Project
	tasks     map[int64]*entity.Task
	followers map[int64][]int64
}

func (m *memProjectRepo) FindOrCreateProject(ctx context.Context, name string) (*entity.Project, error) {
	if p, ok := m.projects[name]; ok {
		return p, nil
	}
	p := &entity.Project{ID: int64(len(m.projects) + 1), Name: name}
	m.projects[name] = p
	return p, nil
}

func (m *memProjectRepo) GetTaskByTripID(ctx context.Context, tripID int64) (*entity.Task, error) {
	return m.tasks[tripID], nil
}

func (m *memProjectRepo) CreateTask(ctx context.Context, task *entity.Task) error {
	task.ID = int64(len(m.tasks) + 1)
	m.tasks[task.TripID] = task
	return nil
}

func (m *memProjectRepo) AddFollowers(ctx context.Context, taskID int64, userIDs []int64) error {
	m.followers[taskID] = append(m.followers[taskID], userIDs...)
	return nil
}

type memAttachmentRepo struct {
	attachments []*entity.Attachment
}

func (m *memAttachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	att.ID = int64(len(m.attachments) + 1)
	m.attachments = append(m.attachments, att)
	return nil
}

func (m *memAttachmentRepo) Find(ctx context.Context, model string, recordID int64, field string) (*entity.Attachment, error) {
	for _, a := range m.attachments {
		if a.Model == model && a.RecordID == recordID && a.Field == field {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAttachmentRepo) Delete(ctx context.Context, model string, recordID int64, field string) error {
	kept := m.attachments[:0]
	for _, a := range m.attachments {
		if !(a.Model == model && a.RecordID == recordID && a.Field == field) {
			kept = append(kept, a)
		}
	}
	m.attachments = kept
	return nil
}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockNotifier records deliveries; NotifyFunc overrides the outcome
type mockNotifier struct {
	mu         sync.Mutex
	delivered  map[int64]int
	NotifyFunc func(ctx context.Context, recipient *entity.User, msg *entity.Message) error
}

func (m *mockNotifier) Notify(ctx context.Context, recipient *entity.User, msg *entity.Message) error {
	if m.NotifyFunc != nil {
		if err := m.NotifyFunc(ctx, recipient, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delivered == nil {
		m.delivered = map[int64]int{}
	}
	m.delivered[recipient.ID]++
	return nil
}

type mockStorage struct {
	files   map[string][]byte
	SaveErr error
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	b, ok := m.files[path]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return b, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/tmp/" + relativePath
}

type mockLedgerWriter struct {
	WriteFunc func(rows []port.LedgerRow) ([]byte, error)
}

func (m *mockLedgerWriter) Write(rows []port.LedgerRow) ([]byte, error) {
	return m.WriteFunc(rows)
}

type testLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *testLogger) Info(string, ...interface{}) {}

func (l *testLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

// Users of the test company
var (
	employee  = &entity.User{ID: 1, Name: "Erin Employee", ManagerID: 2}
	manager   = &entity.User{ID: 2, Name: "Max Manager"}
	organizer = &entity.User{ID: 3, Name: "Olga Organizer", Groups: []string{entity.GroupOrganizer}}
	finance   = &entity.User{ID: 4, Name: "Fran Finance", Groups: []string{entity.GroupFinance}}
	admin     = &entity.User{ID: 5, Name: "Ada Admin", Groups: []string{entity.GroupAdmin}}
	outsider  = &entity.User{ID: 6, Name: "Otto Outsider"}
	orphan    = &entity.User{ID: 7, Name: "Nora Nomanager"}
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type env struct {
	trips       *memTripRepo
	data        *memDataRepo
	persons     *memPersonRepo
	forms       *memFormRepo
	history     *memHistoryRepo
	messages    *memMessageRepo
	users       *memUserRepo
	projects    *memProjectRepo
	attachments *memAttachmentRepo
	storage     *mockStorage
	notifier    *mockNotifier
	logger      *testLogger
	disp        dispatcher.Dispatcher

	clock         time.Time
	trip          *tripServiceImpl
	notifications *notificationServiceImpl
}

func newEnv() *env {
	e := &env{
		trips:       &memTripRepo{trips: map[int64]*entity.TripRequest{}},
		data:        &memDataRepo{data: map[int64]*entity.TripData{}},
		persons:     &memPersonRepo{persons: map[int64][]entity.AccompanyingPerson{}},
		forms:       &memFormRepo{forms: map[string]*entity.Form{}},
		history:     &memHistoryRepo{},
		messages:    &memMessageRepo{},
		users:       &memUserRepo{users: map[int64]*entity.User{}},
		projects:    &memProjectRepo{projects: map[string]*entity.Project{}, tasks: map[int64]*entity.Task{}, followers: map[int64][]int64{}},
		attachments: &memAttachmentRepo{},
		storage:     &mockStorage{files: map[string][]byte{}},
		notifier:    &mockNotifier{},
		logger:      &testLogger{},
		disp:        dispatcher.NewDispatcher(),
		clock:       testNow,
	}
	for _, u := range []*entity.User{employee, manager, organizer, finance, admin, outsider, orphan} {
		e.users.users[u.ID] = u
	}

	now := func() time.Time { return e.clock }
	engine := wf.NewEngine(e.trips, e.history, mockTxManager{},
		wf.WithDispatcher(e.disp),
		wf.WithClock(now))

	e.notifications = NewNotificationService(e.messages, e.users, e.notifier, 5*time.Minute, e.logger).(*notificationServiceImpl)
	e.notifications.now = now

	e.trip = NewTripService(TripRepositories{
		Trips:    e.trips,
		Data:     e.data,
		Persons:  e.persons,
		Forms:    e.forms,
		History:  e.history,
		Users:    e.users,
		Projects: e.projects,
	}, engine, e.notifications, e.disp, mockTxManager{}, WorkflowSettings{
		AdminUserID:                  admin.ID,
		UndoExpenseApprovalDaysLimit: 7,
		CompanyCurrency:              "EUR",
	}, e.logger).(*tripServiceImpl)
	e.trip.now = now
	return e
}

// advance moves the clock forward so consecutive messages fall outside the dedupe window
func (e *env) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *env) stored(id int64) *entity.TripRequest {
	return e.trips.trips[id]
}
