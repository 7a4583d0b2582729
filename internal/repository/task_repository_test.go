package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-tracker/internal/model"
)

var taskCols = []string{"id", "user_id", "title", "description", "status", "created_at", "updated_at"}

func newTaskRepoWithMock(t *testing.T) (*TaskRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTaskRepo(db), mock
}

func strp(s string) *string { return &s }

func TestTaskRepo_Create(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks (user_id, title, description, status) VALUES (?, ?, ?, ?)")).
		WithArgs(uint64(4), "Write report", nil, "pending").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = ?")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(11, 4, "Write report", nil, "pending", now, now))

	task := &model.Task{UserID: 4, Title: "Write report", Status: model.TaskPending}
	require.NoError(t, repo.Create(context.Background(), task))
	assert.Equal(t, uint64(11), task.ID)
	assert.Nil(t, task.Description)
	assert.Equal(t, now, task.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery("FROM tasks WHERE id").WithArgs(uint64(99999)).
		WillReturnRows(sqlmock.NewRows(taskCols))

	_, err := repo.GetByID(context.Background(), 99999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskRepo_ListByUser_WithStatus(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE user_id = ? AND status = ? ORDER BY created_at DESC, id DESC")).
		WithArgs(uint64(4), "completed").
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(2, 4, "b", "details", "completed", now, now).
			AddRow(1, 4, "a", nil, "completed", now, now))

	got, err := repo.ListByUser(context.Background(), 4, "completed")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].ID)
	require.NotNil(t, got[0].Description)
	assert.Equal(t, "details", *got[0].Description)
	assert.Nil(t, got[1].Description)
}

func TestTaskRepo_ListByUser_Empty(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE user_id = ? ORDER BY")).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(taskCols))

	got, err := repo.ListByUser(context.Background(), 4, "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTaskRepo_Update_Patch(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET title = ?, description = NULL, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")).
		WithArgs("New", "completed", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM tasks WHERE id").WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(5, 4, "New", nil, "completed", now, now))

	got, err := repo.Update(context.Background(), 5, model.TaskPatch{
		Title:            strp("New"),
		ClearDescription: true,
		Status:           strp("completed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "completed", got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_Update_EmptyPatchOnlyReads(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM tasks WHERE id").WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(5, 4, "Same", "d", "pending", now, now))

	got, err := repo.Update(context.Background(), 5, model.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Same", got.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_Delete(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ?")).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ?")).WithArgs(uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ?")).WithArgs(uint64(7)).
		WillReturnError(errors.New("lock wait timeout"))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 6), ErrTaskNotFound)
	err := repo.Delete(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTaskNotFound)
}
