package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
)

var (
	// ErrReferenceNotFound is returned when a position is past the end of
	// the pending listing.
	ErrReferenceNotFound = errors.New("no task at that position")

	// ErrAmbiguous is returned when a reference names no usable position.
	ErrAmbiguous = errors.New("ambiguous task reference")
)

// PendingListing returns the user's pending tasks numbered from 1 in the
// order the user sees them.
//
// The listing is recomputed on every call. A task created or completed
// between a user's "lista" and their "completar 2" shifts the numbering;
// the command then acts on whatever holds that position now.
func (a *Assistant) PendingListing(ctx context.Context, userID string) ([]compose.Listed, error) {
	tasks, err := a.store.FindTasks(ctx, store.TaskFilter{
		OwnerID:  userID,
		Statuses: []model.TaskStatus{model.TaskStatusPending},
		Sort:     store.PendingOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("listing pending tasks for %s: %w", userID, err)
	}

	items := make([]compose.Listed, len(tasks))
	for i, t := range tasks {
		items[i] = compose.Listed{Position: i + 1, Task: t}
	}
	return items, nil
}

// ResolveOrdinal returns the task at 1-based position n of the user's
// pending listing, along with the listing's length.
func (a *Assistant) ResolveOrdinal(ctx context.Context, userID string, n int) (model.Task, int, error) {
	if n <= 0 {
		return model.Task{}, 0, fmt.Errorf("position %d: %w", n, ErrAmbiguous)
	}
	items, err := a.PendingListing(ctx, userID)
	if err != nil {
		return model.Task{}, 0, err
	}
	task, err := pick(items, n)
	return task, len(items), err
}

func pick(items []compose.Listed, n int) (model.Task, error) {
	if n <= 0 {
		return model.Task{}, fmt.Errorf("position %d: %w", n, ErrAmbiguous)
	}
	if n > len(items) {
		return model.Task{}, fmt.Errorf("position %d of %d: %w", n, len(items), ErrReferenceNotFound)
	}
	return items[n-1].Task, nil
}
