package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
	"github.com/BuzzLyutic/taskhub/internal/repo"
	"github.com/BuzzLyutic/taskhub/internal/service"
)

const (
	userID = "11111111-1111-1111-1111-111111111111"
	taskID = "33333333-3333-3333-3333-333333333333"
)

func TestTaskHandler_Create(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		caller        string
		idempKey      string
		setupMock     func(*MockTaskService)
		wantCode      int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:     "successful creation",
			body:     `{"title":"Test Task","priority":"High"}`,
			caller:   userID,
			idempKey: "key-1",
			setupMock: func(m *MockTaskService) {
				m.On("Create", mock.Anything, userID, service.CreateTaskInput{Title: "Test Task", Priority: "High"}, "key-1").
					Return(model.Task{ID: taskID, Title: "Test Task", Priority: model.PriorityHigh}, nil)
			},
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var task model.Task
				require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
				assert.Equal(t, taskID, task.ID)
				assert.Equal(t, "/api/tasks/"+taskID, w.Header().Get("Location"))
			},
		},
		{
			name:      "empty body",
			body:      "",
			caller:    userID,
			setupMock: func(*MockTaskService) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "malformed json",
			body:      `{"title":`,
			caller:    userID,
			setupMock: func(*MockTaskService) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:   "validation error",
			body:   `{"title":""}`,
			caller: userID,
			setupMock: func(m *MockTaskService) {
				m.On("Create", mock.Anything, userID, mock.Anything, "").
					Return(model.Task{}, &service.ValidationError{Field: "title", Message: "title is required"})
			},
			wantCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"message":"title is required"}`, w.Body.String())
			},
		},
		{
			name: "anonymous caller",
			body: `{"title":"Valid"}`,
			setupMock: func(m *MockTaskService) {
				m.On("Create", mock.Anything, "", mock.Anything, "").Return(model.Task{}, service.ErrNotAuthenticated)
			},
			wantCode: http.StatusUnauthorized,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"message":"User not authenticated"}`, w.Body.String())
			},
		},
		{
			name:   "unknown assignee",
			body:   `{"title":"Valid","assignedToId":"22222222-2222-2222-2222-222222222222"}`,
			caller: userID,
			setupMock: func(m *MockTaskService) {
				m.On("Create", mock.Anything, userID, mock.Anything, "").Return(model.Task{}, repo.ErrorInvalidReference)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "store failure surfaces the message",
			body:   `{"title":"Valid"}`,
			caller: userID,
			setupMock: func(m *MockTaskService) {
				m.On("Create", mock.Anything, userID, mock.Anything, "").Return(model.Task{}, errors.New("connection reset"))
			},
			wantCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"message":"connection reset"}`, w.Body.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTaskService)
			tt.setupMock(svc)
			h := NewTaskHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.idempKey != "" {
				req.Header.Set("Idempotency-Key", tt.idempKey)
			}
			req = withRoute(req, tt.caller, nil)

			w := httptest.NewRecorder()
			h.Create(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_List(t *testing.T) {
	t.Run("empty list encodes as array", func(t *testing.T) {
		svc := new(MockTaskService)
		svc.On("List", mock.Anything, userID).Return(nil, nil)
		h := NewTaskHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.List(w, withRoute(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), userID, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("returns tasks", func(t *testing.T) {
		svc := new(MockTaskService)
		svc.On("List", mock.Anything, userID).Return([]model.Task{{ID: taskID, Title: "A"}}, nil)
		h := NewTaskHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.List(w, withRoute(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), userID, nil))

		var tasks []model.Task
		require.NoError(t, json.NewDecoder(w.Body).Decode(&tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, taskID, tasks[0].ID)
	})
}

func TestTaskHandler_Get(t *testing.T) {
	svc := new(MockTaskService)
	svc.On("Get", mock.Anything, taskID).Return(model.Task{ID: taskID}, nil)
	svc.On("Get", mock.Anything, "missing").Return(model.Task{}, repo.ErrorNotFound)
	h := NewTaskHandler(svc, zap.NewNop())

	t.Run("get existing task", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Get(w, withRoute(httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID, nil), userID, map[string]string{"id": taskID}))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get non-existing task", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Get(w, withRoute(httptest.NewRequest(http.MethodGet, "/api/tasks/missing", nil), userID, map[string]string{"id": "missing"}))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"Task not found"}`, w.Body.String())
	})
}

func TestTaskHandler_Update(t *testing.T) {
	status := "Completed"
	version := 2

	tests := []struct {
		name      string
		body      string
		setupMock func(*MockTaskService)
		wantCode  int
	}{
		{
			name: "successful update",
			body: `{"status":"Completed","version":2}`,
			setupMock: func(m *MockTaskService) {
				m.On("Update", mock.Anything, userID, taskID, service.UpdateTaskInput{Status: &status, Version: &version}).
					Return(model.Task{ID: taskID, Status: model.StatusCompleted, Version: 3}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name: "version conflict",
			body: `{"status":"Completed","version":2}`,
			setupMock: func(m *MockTaskService) {
				m.On("Update", mock.Anything, userID, taskID, mock.Anything).Return(model.Task{}, repo.ErrorConflict)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "missing task",
			body: `{"status":"Completed"}`,
			setupMock: func(m *MockTaskService) {
				m.On("Update", mock.Anything, userID, taskID, mock.Anything).Return(model.Task{}, repo.ErrorNotFound)
			},
			wantCode: http.StatusNotFound,
		},
		{
			name:      "invalid json",
			body:      `not json`,
			setupMock: func(*MockTaskService) {},
			wantCode:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTaskService)
			tt.setupMock(svc)
			h := NewTaskHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodPut, "/api/tasks/"+taskID, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Update(w, withRoute(req, userID, map[string]string{"id": taskID}))

			assert.Equal(t, tt.wantCode, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	svc := new(MockTaskService)
	svc.On("Delete", mock.Anything, userID, taskID).Return(nil).Once()
	svc.On("Delete", mock.Anything, userID, taskID).Return(repo.ErrorNotFound).Once()
	h := NewTaskHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.Delete(w, withRoute(httptest.NewRequest(http.MethodDelete, "/api/tasks/"+taskID, nil), userID, map[string]string{"id": taskID}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Task removed"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Delete(w, withRoute(httptest.NewRequest(http.MethodDelete, "/api/tasks/"+taskID, nil), userID, map[string]string{"id": taskID}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_Stats(t *testing.T) {
	svc := new(MockTaskService)
	svc.On("Stats", mock.Anything, userID).Return(model.TaskStats{Total: 2, ByStatus: map[model.Status]int{
		model.StatusToDo:       1,
		model.StatusInProgress: 1,
		model.StatusCompleted:  0,
	}}, nil)
	h := NewTaskHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.Stats(w, withRoute(httptest.NewRequest(http.MethodGet, "/api/tasks/stats", nil), userID, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":2,"byStatus":{"To Do":1,"In Progress":1,"Completed":0}}`, w.Body.String())
}

func TestTaskHandler_Update_Assignee(t *testing.T) {
	const assigneeID = "22222222-2222-2222-2222-222222222222"

	tests := []struct {
		name      string
		body      string
		setupMock func(*MockTaskRepository)
		wantCode  int
	}{
		{
			name: "empty assignee clears it",
			body: `{"assignedToId":""}`,
			setupMock: func(r *MockTaskRepository) {
				assignee := assigneeID
				r.On("Get", mock.Anything, taskID).Return(model.Task{ID: taskID, AssignedToID: &assignee}, nil)
				r.On("Update", mock.Anything, taskID, mock.MatchedBy(func(p model.TaskPatch) bool {
					return p.AssignedToID != nil && *p.AssignedToID == ""
				})).Return(model.Task{ID: taskID, Version: 2}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name: "new assignee",
			body: `{"assignedToId":"` + assigneeID + `"}`,
			setupMock: func(r *MockTaskRepository) {
				r.On("Get", mock.Anything, taskID).Return(model.Task{ID: taskID}, nil)
				r.On("Update", mock.Anything, taskID, mock.Anything).Return(model.Task{ID: taskID, Version: 2}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:      "malformed assignee",
			body:      `{"assignedToId":"bob"}`,
			setupMock: func(*MockTaskRepository) {},
			wantCode:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(MockTaskRepository)
			tt.setupMock(r)
			h := NewTaskHandler(service.NewTaskService(r, nopPublisher{}, zap.NewNop()), zap.NewNop())

			req := httptest.NewRequest(http.MethodPut, "/api/tasks/"+taskID, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Update(w, withRoute(req, userID, map[string]string{"id": taskID}))

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			r.AssertExpectations(t)
		})
	}
}
