package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository on the users table.
// Groups are stored as a comma separated list.
type UserRepository struct {
	base
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// GetByID returns nil when the user does not exist
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.exec(ctx).QueryRowContext(ctx,
		`SELECT id, name, email, lark_open_id, manager_id, group_names FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListByGroup returns the members of a group ordered by ID
func (r *UserRepository) ListByGroup(ctx context.Context, group string) ([]*entity.User, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, `
		SELECT id, name, email, lark_open_id, manager_id, group_names
		FROM users
		WHERE ',' || group_names || ',' LIKE ?
		ORDER BY id ASC
	`, "%,"+group+",%")
	if err != nil {
		r.logger.Error("Failed to list users by group", zap.String("group", group), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Upsert inserts the user or replaces the stored one with the same ID
func (r *UserRepository) Upsert(ctx context.Context, user *entity.User) error {
	_, err := r.exec(ctx).ExecContext(ctx, `
		INSERT INTO users (id, name, email, lark_open_id, manager_id, group_names, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			lark_open_id = excluded.lark_open_id,
			manager_id = excluded.manager_id,
			group_names = excluded.group_names
	`,
		user.ID,
		user.Name,
		user.Email,
		user.LarkOpenID,
		nullID(user.ManagerID),
		strings.Join(user.Groups, ","),
		time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert user", zap.Int64("id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func scanUser(row scanner) (*entity.User, error) {
	var u entity.User
	var managerID sql.NullInt64
	var groups string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.LarkOpenID, &managerID, &groups); err != nil {
		return nil, err
	}
	u.ManagerID = managerID.Int64
	for _, g := range strings.Split(groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			u.Groups = append(u.Groups, g)
		}
	}
	return &u, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
