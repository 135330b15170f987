package taskclient

import "time"

// Event names pushed over the realtime connection.
const (
	EventTaskCreated  = "task:created"
	EventTaskUpdated  = "task:updated"
	EventTaskDeleted  = "task:deleted"
	EventNotification = "notification"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	CreatorID    string     `json:"creatorId"`
	AssignedToID *string    `json:"assignedToId,omitempty"`
	Creator      *User      `json:"creator,omitempty"`
	AssignedTo   *User      `json:"assignedTo,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type TaskStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

type Notification struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// CreateTaskRequest leaves server defaults in place for empty fields.
// DueDate is RFC 3339 or YYYY-MM-DD.
type CreateTaskRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	DueDate      string  `json:"dueDate,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	Status       string  `json:"status,omitempty"`
	AssignedToID *string `json:"assignedToId,omitempty"`
}

// UpdateTaskRequest only sends non-nil fields. A pointer to "" in
// AssignedToID clears the assignee; Version enables the conflict check.
type UpdateTaskRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	DueDate      *string `json:"dueDate,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	Status       *string `json:"status,omitempty"`
	AssignedToID *string `json:"assignedToId,omitempty"`
	Version      *int    `json:"version,omitempty"`
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
