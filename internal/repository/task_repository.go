// Package repository contains data access logic separated from HTTP handlers.
// This file defines the task queries.  Ownership is not enforced here: the
// handler loads the task, runs the ownership guard and only then mutates,
// so that "not found" and "not yours" stay distinguishable.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to match sql.ErrNoRows
	"fmt"          // fmt wraps driver errors
	"strings"      // strings builds the dynamic SET clause

	"github.com/iliyamo/task-tracker/internal/model"
)

// TaskRepo encapsulates all database queries related to tasks.
type TaskRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewTaskRepo constructs a TaskRepo with the provided DB handle.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = "id, user_id, title, description, status, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	var (
		t    model.Task
		desc sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &desc, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		t.Description = &d
	}
	return &t, nil
}

// Create inserts a new task.  On success the task's ID and timestamps are
// populated from a follow-up SELECT so that callers receive the stored row.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const qInsert = "INSERT INTO tasks (user_id, title, description, status) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, t.UserID, t.Title, nullable(t.Description), t.Status)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

// GetByID fetches a task regardless of owner.  It returns ErrTaskNotFound
// if no row is found.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// ListByUser returns the user's tasks, newest first.  A non-empty status
// restricts the result to that status.
func (r *TaskRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]*model.Task, error) {
	q := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []any{userID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []*model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

// Update applies a patch to the task and returns the stored row.  An empty
// patch performs no write.  ErrTaskNotFound is returned when the row has
// disappeared in the meantime.
func (r *TaskRepo) Update(ctx context.Context, id uint64, p model.TaskPatch) (*model.Task, error) {
	if !p.Empty() {
		sets := []string{}
		args := []any{}
		if p.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *p.Title)
		}
		if p.ClearDescription {
			sets = append(sets, "description = NULL")
		} else if p.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *p.Description)
		}
		if p.Status != nil {
			sets = append(sets, "status = ?")
			args = append(args, *p.Status)
		}
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)

		q := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the task.  It returns ErrTaskNotFound when no row is affected.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
