package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	CreatorID    string     `json:"creatorId"`
	AssignedToID *string    `json:"assignedToId,omitempty"`
	Creator      *UserRef   `json:"creator,omitempty"`
	AssignedTo   *UserRef   `json:"assignedTo,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TaskPatch is a partial update. Nil fields are left untouched; an empty
// AssignedToID clears the assignee.
type TaskPatch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	Priority     *Priority
	Status       *Status
	AssignedToID *string
	Version      *int
}

type TaskStats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"byStatus"`
}
