package board

import (
	"fmt"
	"slices"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type Location struct {
	Lane  LaneName `json:"lane"`
	Index int      `json:"index"`
}

// DragEvent is one completed drag gesture. A nil Destination means the task
// was dropped outside of every lane.
type DragEvent struct {
	Source      Location  `json:"source"`
	Destination *Location `json:"destination,omitempty"`
}

func Move(from LaneName, fromIndex int, to LaneName, toIndex int) DragEvent {
	return DragEvent{
		Source:      Location{Lane: from, Index: fromIndex},
		Destination: &Location{Lane: to, Index: toIndex},
	}
}

func DroppedOutside(from LaneName, fromIndex int) DragEvent {
	return DragEvent{Source: Location{Lane: from, Index: fromIndex}}
}

func (e DragEvent) Outside() bool {
	return e.Destination == nil
}

// Change describes what a drag did and is everything the backend needs to
// persist it. Order is always the complete order of Lane. NewStatus is set
// only when the task moved to another lane; SourceLane and SourceOrder then
// describe the lane it left.
type Change struct {
	Lane        LaneName    `json:"lane"`
	Order       []string    `json:"order"`
	MovedTaskID string      `json:"moved_task_id"`
	NewStatus   task.Status `json:"new_status,omitempty"`
	SourceLane  LaneName    `json:"source_lane,omitempty"`
	SourceOrder []string    `json:"source_order,omitempty"`
}

func (c Change) CrossLane() bool {
	return c.NewStatus != ""
}

func (c Change) LaneOrder(revision string) task.LaneOrder {
	return task.LaneOrder{
		Status:   c.Lane.Status(),
		TaskIDs:  slices.Clone(c.Order),
		Revision: revision,
	}
}

// Reorder applies a drag to b and returns the resulting board with the change
// to persist. b is never modified.
//
// Moves within a lane remove the task first and then insert it at the
// destination index of the shortened lane. Moves across lanes rewrite the
// status of the task to the canonical status of the destination lane.
//
// A drop outside every lane returns b and a nil change. Invalid lanes or
// indices return b and a validation error; indices are never clamped.
func Reorder(b Board, ev DragEvent) (Board, *Change, error) {
	if ev.Outside() {
		return b, nil, nil
	}
	src, err := b.Lane(ev.Source.Lane)
	if err != nil {
		return b, nil, err
	}
	dst, err := b.Lane(ev.Destination.Lane)
	if err != nil {
		return b, nil, err
	}
	if ev.Source.Index < 0 || ev.Source.Index >= len(src) {
		return b, nil, cerr.NewError(cerr.OutOfRange,
			fmt.Sprintf("source index %d out of range for lane %s with %d tasks", ev.Source.Index, ev.Source.Lane, len(src)), nil)
	}

	moved := src[ev.Source.Index]
	remaining := slices.Delete(slices.Clone(src), ev.Source.Index, ev.Source.Index+1)

	if ev.Source.Lane == ev.Destination.Lane {
		order, err := insertAt(remaining, ev.Destination, moved)
		if err != nil {
			return b, nil, err
		}
		return b.withLane(ev.Source.Lane, order), &Change{
			Lane:        ev.Source.Lane,
			Order:       slices.Clone(order),
			MovedTaskID: moved,
		}, nil
	}

	order, err := insertAt(slices.Clone(dst), ev.Destination, moved)
	if err != nil {
		return b, nil, err
	}
	next := b.withLane(ev.Source.Lane, remaining).withLane(ev.Destination.Lane, order)
	return next, &Change{
		Lane:        ev.Destination.Lane,
		Order:       slices.Clone(order),
		MovedTaskID: moved,
		NewStatus:   ev.Destination.Lane.Status(),
		SourceLane:  ev.Source.Lane,
		SourceOrder: slices.Clone(remaining),
	}, nil
}

func insertAt(ids []string, at *Location, id string) ([]string, error) {
	if at.Index < 0 || at.Index > len(ids) {
		return nil, cerr.NewError(cerr.OutOfRange,
			fmt.Sprintf("destination index %d out of range for lane %s with %d slots", at.Index, at.Lane, len(ids)+1), nil)
	}
	return slices.Insert(ids, at.Index, id), nil
}
