package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
)

func TestNewTaskFrom(t *testing.T) {
	task, err := newTaskFrom(map[string]any{"title": " a ", "description": " b ", "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, "a", task.Title)
	require.NotNil(t, task.Description)
	assert.Equal(t, "b", *task.Description)
	assert.Equal(t, model.TaskCompleted, task.Status)

	// empty optional values fall back to defaults
	task, err = newTaskFrom(map[string]any{"title": "a", "description": "   ", "status": ""})
	require.NoError(t, err)
	assert.Nil(t, task.Description)
	assert.Equal(t, model.TaskPending, task.Status)

	task, err = newTaskFrom(map[string]any{"title": "a", "description": false, "status": nil})
	require.NoError(t, err)
	assert.Nil(t, task.Description)

	// limits count characters, not bytes
	_, err = newTaskFrom(map[string]any{"title": strings.Repeat("é", MaxTitleLen)})
	assert.NoError(t, err)
	_, err = newTaskFrom(map[string]any{"title": "a", "description": strings.Repeat("é", MaxDescriptionLen)})
	assert.NoError(t, err)

	_, err = newTaskFrom(map[string]any{"title": "a", "status": 1.0})
	assert.EqualError(t, err, msgInvalidStatus)
}

func TestPatchFrom(t *testing.T) {
	p, err := patchFrom(map[string]any{})
	require.NoError(t, err)
	assert.True(t, p.Empty())

	p, err = patchFrom(map[string]any{"title": " new ", "status": "pending"})
	require.NoError(t, err)
	assert.Equal(t, "new", *p.Title)
	assert.Equal(t, "pending", *p.Status)
	assert.Nil(t, p.Description)
	assert.False(t, p.ClearDescription)

	p, err = patchFrom(map[string]any{"description": ""})
	require.NoError(t, err)
	assert.True(t, p.ClearDescription)

	_, err = patchFrom(map[string]any{"description": []any{"x"}})
	assert.EqualError(t, err, msgDescNotString)

	_, err = patchFrom(map[string]any{"title": strings.Repeat("t", MaxTitleLen+1)})
	assert.EqualError(t, err, msgTitleTooLong)
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []any{nil, "", 0.0, false} {
		assert.True(t, isFalsy(v), "%#v", v)
	}
	for _, v := range []any{"0", " ", 1.0, true, []any{}, map[string]any{}} {
		assert.False(t, isFalsy(v), "%#v", v)
	}
}

// brokenTasks fails every call.
type brokenTasks struct{}

var errDown = errors.New("database is down")

func (brokenTasks) Create(context.Context, *model.Task) error { return errDown }
func (brokenTasks) GetByID(context.Context, uint64) (*model.Task, error) {
	return nil, errDown
}
func (brokenTasks) ListByUser(context.Context, uint64, string) ([]*model.Task, error) {
	return nil, errDown
}
func (brokenTasks) Update(context.Context, uint64, model.TaskPatch) (*model.Task, error) {
	return nil, errDown
}
func (brokenTasks) Delete(context.Context, uint64) error { return errDown }

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(context.Context, queue.ActivityEvent) error {
	p.n++
	return nil
}

func serveAs(uid uint64, h echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		c.Set(middleware.ContextUserID, uid)
	}
	c.SetParamNames("id")
	c.SetParamValues("1")
	_ = h(c)
	return rec
}

func TestTaskHandler_StoreFailureHidesCause(t *testing.T) {
	pub := &countingPublisher{}
	h := NewTaskHandler(brokenTasks{}, pub)

	for name, fn := range map[string]struct {
		h      echo.HandlerFunc
		method string
		body   string
	}{
		"list":   {h.List, http.MethodGet, ""},
		"create": {h.Create, http.MethodPost, `{"title":"x"}`},
		"update": {h.Update, http.MethodPut, `{"title":"x"}`},
		"delete": {h.Delete, http.MethodDelete, ""},
	} {
		t.Run(name, func(t *testing.T) {
			rec := serveAs(1, fn.h, fn.method, "/api/tasks/1", fn.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"message":"Server error"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), errDown.Error())
		})
	}
	assert.Zero(t, pub.n)
}

func TestTaskHandler_RequiresUser(t *testing.T) {
	h := NewTaskHandler(brokenTasks{}, nil)
	rec := serveAs(0, h.List, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
