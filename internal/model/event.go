package model

type EventKind string

const (
	EventTaskCreated  EventKind = "task:created"
	EventTaskUpdated  EventKind = "task:updated"
	EventTaskDeleted  EventKind = "task:deleted"
	EventNotification EventKind = "notification"
)

// Event is the frame pushed to realtime clients.
type Event struct {
	Kind EventKind `json:"event"`
	Data any       `json:"data"`
}

type TaskDeleted struct {
	ID string `json:"id"`
}

type Notification struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}
