package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "unicode/utf8"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/task-tracker/internal/model"
    "github.com/iliyamo/task-tracker/internal/queue"
    "github.com/iliyamo/task-tracker/internal/repository"
    "github.com/iliyamo/task-tracker/internal/service"
)

// Field limits for tasks.
const (
    MaxTitleLen       = 200
    MaxDescriptionLen = 1000
)

const (
    msgInvalidTaskID = "Invalid task ID"
    msgTaskNotFound  = "Task not found"
    msgInvalidStatus = "Status must be either 'pending' or 'completed'"
    msgTitleTooLong  = "Title must be less than 200 characters"
    msgDescNotString = "Description must be a string"
    msgDescTooLong   = "Description must be less than 1000 characters"
    taskResource     = "task"
)

// TaskStore is implemented by *repository.TaskRepo.
type TaskStore interface {
    Create(ctx context.Context, t *model.Task) error
    GetByID(ctx context.Context, id uint64) (*model.Task, error)
    ListByUser(ctx context.Context, userID uint64, status string) ([]*model.Task, error)
    Update(ctx context.Context, id uint64, p model.TaskPatch) (*model.Task, error)
    Delete(ctx context.Context, id uint64) error
}

// TaskHandler serves the caller's task list.  Every route runs behind
// JWTAuth; update and delete additionally pass the ownership guard.
type TaskHandler struct {
    Tasks  TaskStore
    Events service.Publisher
}

func NewTaskHandler(tasks TaskStore, events service.Publisher) *TaskHandler {
    if events == nil {
        events = service.NopPublisher{}
    }
    return &TaskHandler{Tasks: tasks, Events: events}
}

type taskResp struct {
    Task    *model.Task `json:"task"`
    Message string      `json:"message"`
}

// inputError carries a client-facing 400 message.
type inputError string

func (e inputError) Error() string { return string(e) }

// List: GET /api/tasks[?status=pending|completed]
func (h *TaskHandler) List(c echo.Context) error {
    uid, ok := currentUser(c)
    if !ok {
        return message(c, http.StatusUnauthorized, msgUnauthorized)
    }
    status := strings.TrimSpace(c.QueryParam("status"))
    if status != "" && !model.ValidTaskStatus(status) {
        return message(c, http.StatusBadRequest, msgInvalidStatus)
    }

    ctx, cancel := storeContext(c)
    defer cancel()

    tasks, err := h.Tasks.ListByUser(ctx, uid, status)
    if err != nil {
        return serverError(c, err, "list tasks failed")
    }
    return c.JSON(http.StatusOK, tasks)
}

// Create: POST /api/tasks
func (h *TaskHandler) Create(c echo.Context) error {
    uid, ok := currentUser(c)
    if !ok {
        return message(c, http.StatusUnauthorized, msgUnauthorized)
    }
    body, err := readBody(c)
    if err != nil {
        return message(c, http.StatusBadRequest, msgInvalidBody)
    }
    t, err := newTaskFrom(body)
    if err != nil {
        return message(c, http.StatusBadRequest, err.Error())
    }
    t.UserID = uid

    ctx, cancel := storeContext(c)
    defer cancel()

    if err := h.Tasks.Create(ctx, t); err != nil {
        return serverError(c, err, "create task failed")
    }
    _ = h.Events.Publish(c.Request().Context(), service.TaskEvent(queue.EventTaskCreated, t))
    return c.JSON(http.StatusCreated, taskResp{Task: t, Message: "Task created successfully"})
}

// Update: PUT /api/tasks/:id.  Only fields present in the body change.
// Validation runs first, then existence, then ownership.
func (h *TaskHandler) Update(c echo.Context) error {
    uid, ok := currentUser(c)
    if !ok {
        return message(c, http.StatusUnauthorized, msgUnauthorized)
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return message(c, http.StatusBadRequest, msgInvalidTaskID)
    }
    body, err := readBody(c)
    if err != nil {
        return message(c, http.StatusBadRequest, msgInvalidBody)
    }
    patch, err := patchFrom(body)
    if err != nil {
        return message(c, http.StatusBadRequest, err.Error())
    }

    ctx, cancel := storeContext(c)
    defer cancel()

    existing, err := h.Tasks.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTaskNotFound) {
            return message(c, http.StatusNotFound, msgTaskNotFound)
        }
        return serverError(c, err, "load task failed")
    }
    if err := service.Authorize(taskResource, existing.UserID, uid, service.ActionUpdate); err != nil {
        return message(c, http.StatusForbidden, err.Error())
    }

    updated, err := h.Tasks.Update(ctx, id, patch)
    if err != nil {
        if errors.Is(err, repository.ErrTaskNotFound) {
            return message(c, http.StatusNotFound, msgTaskNotFound)
        }
        return serverError(c, err, "update task failed")
    }
    _ = h.Events.Publish(c.Request().Context(), service.TaskEvent(queue.EventTaskUpdated, updated))
    return c.JSON(http.StatusOK, taskResp{Task: updated, Message: "Task updated successfully"})
}

// Delete: DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c echo.Context) error {
    uid, ok := currentUser(c)
    if !ok {
        return message(c, http.StatusUnauthorized, msgUnauthorized)
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return message(c, http.StatusBadRequest, msgInvalidTaskID)
    }

    ctx, cancel := storeContext(c)
    defer cancel()

    existing, err := h.Tasks.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTaskNotFound) {
            return message(c, http.StatusNotFound, msgTaskNotFound)
        }
        return serverError(c, err, "load task failed")
    }
    if err := service.Authorize(taskResource, existing.UserID, uid, service.ActionDelete); err != nil {
        return message(c, http.StatusForbidden, err.Error())
    }

    if err := h.Tasks.Delete(ctx, id); err != nil {
        if errors.Is(err, repository.ErrTaskNotFound) {
            return message(c, http.StatusNotFound, msgTaskNotFound)
        }
        return serverError(c, err, "delete task failed")
    }
    _ = h.Events.Publish(c.Request().Context(), service.TaskEvent(queue.EventTaskDeleted, existing))
    return message(c, http.StatusOK, "Task deleted successfully")
}

// newTaskFrom validates a create body.  Empty values for description and
// status count as absent: the description becomes NULL and the status
// defaults to pending.
func newTaskFrom(body map[string]any) (*model.Task, error) {
    rawTitle := body["title"]
    title, ok := rawTitle.(string)
    if isFalsy(rawTitle) || !ok {
        return nil, inputError("Title is required and must be a string")
    }
    if strings.TrimSpace(title) == "" {
        return nil, inputError("Title cannot be empty")
    }
    if utf8.RuneCountInString(title) > MaxTitleLen {
        return nil, inputError(msgTitleTooLong)
    }

    t := &model.Task{Title: strings.TrimSpace(title), Status: model.TaskPending}

    if rawDesc := body["description"]; !isFalsy(rawDesc) {
        desc, ok := rawDesc.(string)
        if !ok {
            return nil, inputError(msgDescNotString)
        }
        if utf8.RuneCountInString(desc) > MaxDescriptionLen {
            return nil, inputError(msgDescTooLong)
        }
        if d := strings.TrimSpace(desc); d != "" {
            t.Description = &d
        }
    }

    if rawStatus := body["status"]; !isFalsy(rawStatus) {
        status, ok := rawStatus.(string)
        if !ok || !model.ValidTaskStatus(status) {
            return nil, inputError(msgInvalidStatus)
        }
        t.Status = status
    }
    return t, nil
}

// patchFrom validates an update body.  A key that is present counts even
// when its value is null: a null title or status is rejected while a null
// or blank description clears the stored one.
func patchFrom(body map[string]any) (model.TaskPatch, error) {
    var p model.TaskPatch

    if rawTitle, present := body["title"]; present {
        title, ok := rawTitle.(string)
        if !ok || strings.TrimSpace(title) == "" {
            return p, inputError("Title must be a non-empty string")
        }
        if utf8.RuneCountInString(title) > MaxTitleLen {
            return p, inputError(msgTitleTooLong)
        }
        title = strings.TrimSpace(title)
        p.Title = &title
    }

    if rawDesc, present := body["description"]; present {
        if rawDesc == nil {
            p.ClearDescription = true
        } else {
            desc, ok := rawDesc.(string)
            if !ok {
                return p, inputError(msgDescNotString)
            }
            if utf8.RuneCountInString(desc) > MaxDescriptionLen {
                return p, inputError(msgDescTooLong)
            }
            if d := strings.TrimSpace(desc); d != "" {
                p.Description = &d
            } else {
                p.ClearDescription = true
            }
        }
    }

    if rawStatus, present := body["status"]; present {
        status, ok := rawStatus.(string)
        if !ok || !model.ValidTaskStatus(status) {
            return p, inputError(msgInvalidStatus)
        }
        p.Status = &status
    }
    return p, nil
}
