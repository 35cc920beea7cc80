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

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	base
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) port.ProjectRepository {
	return &ProjectRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// FindOrCreateProject returns the project with the name, creating it when missing
func (r *ProjectRepository) FindOrCreateProject(ctx context.Context, name string) (*entity.Project, error) {
	exec := r.exec(ctx)
	if _, err := exec.ExecContext(ctx,
		`INSERT OR IGNORE INTO projects (name, created_at) VALUES (?, ?)`, name, time.Now(),
	); err != nil {
		r.logger.Error("Failed to create project", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	var p entity.Project
	err := exec.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to get project", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// GetTaskByTripID returns nil when the trip has no task
func (r *ProjectRepository) GetTaskByTripID(ctx context.Context, tripID int64) (*entity.Task, error) {
	exec := r.exec(ctx)

	var task entity.Task
	var assignee sql.NullInt64
	err := exec.QueryRowContext(ctx, `
		SELECT id, project_id, trip_id, name, assignee_id, created_at
		FROM tasks
		WHERE trip_id = ?
	`, tripID).Scan(&task.ID, &task.ProjectID, &task.TripID, &task.Name, &assignee, &task.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task by trip ID", zap.Int64("trip_id", tripID), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	task.AssigneeID = assignee.Int64

	rows, err := exec.QueryContext(ctx,
		`SELECT user_id FROM task_followers WHERE task_id = ? ORDER BY user_id`, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task followers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan task follower: %w", err)
		}
		task.FollowerIDs = append(task.FollowerIDs, userID)
	}
	return &task, rows.Err()
}

// CreateTask inserts the task and its followers
func (r *ProjectRepository) CreateTask(ctx context.Context, task *entity.Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	result, err := r.exec(ctx).ExecContext(ctx, `
		INSERT INTO tasks (project_id, trip_id, name, assignee_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, task.ProjectID, task.TripID, task.Name, nullID(task.AssigneeID), task.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create task", zap.Int64("trip_id", task.TripID), zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id

	return r.AddFollowers(ctx, task.ID, task.FollowerIDs)
}

// AddFollowers adds users to the task; existing followers are kept once
func (r *ProjectRepository) AddFollowers(ctx context.Context, taskID int64, userIDs []int64) error {
	exec := r.exec(ctx)
	for _, userID := range userIDs {
		if userID == 0 {
			continue
		}
		if _, err := exec.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_followers (task_id, user_id) VALUES (?, ?)`, taskID, userID,
		); err != nil {
			r.logger.Error("Failed to add task follower",
				zap.Int64("task_id", taskID), zap.Int64("user_id", userID), zap.Error(err))
			return fmt.Errorf("failed to add task follower: %w", err)
		}
	}
	return nil
}

// Verify interface compliance
var _ port.ProjectRepository = (*ProjectRepository)(nil)
