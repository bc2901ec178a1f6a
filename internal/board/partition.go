package board

import (
	"fmt"
	"strings"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// Partition groups tasks into lanes by status, keeping the relative order of
// tasks within each lane.
//
// A task with an unknown status, or a second task with an id already placed,
// is left off the board and reported in the returned error. The board is
// complete for every other task even when the error is non-nil.
func Partition(tasks []task.Task) (Board, error) {
	b := Board{
		Todo:       []string{},
		InProgress: []string{},
		Completed:  []string{},
	}
	var rejected []string
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			rejected = append(rejected, fmt.Sprintf("%s (duplicate)", t.ID))
			continue
		}
		seen[t.ID] = struct{}{}
		switch t.Status {
		case task.StatusTodo:
			b.Todo = append(b.Todo, t.ID)
		case task.StatusInProgress:
			b.InProgress = append(b.InProgress, t.ID)
		case task.StatusCompleted:
			b.Completed = append(b.Completed, t.ID)
		default:
			rejected = append(rejected, fmt.Sprintf("%s (%q)", t.ID, t.Status))
		}
	}
	if len(rejected) > 0 {
		return b, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("tasks left off the board: %s", strings.Join(rejected, ", ")), nil)
	}
	return b, nil
}
