package repo

import (
	"errors"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

var (
	ErrorNotFound         = errors.New("not found")
	ErrorConflict         = errors.New("conflict")
	ErrorInvalidReference = errors.New("referenced user does not exist")
)

// validID reports whether id can name a stored record. Both stores key
// records by UUID strings, so anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newStats() model.TaskStats {
	return model.TaskStats{ByStatus: map[model.Status]int{
		model.StatusToDo:       0,
		model.StatusInProgress: 0,
		model.StatusCompleted:  0,
	}}
}
