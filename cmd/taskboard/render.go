package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

var laneTitles = map[board.LaneName]string{
	board.LaneTodo:       "To Do",
	board.LaneInProgress: "In Progress",
	board.LaneCompleted:  "Completed",
}

// Renderer writes boards, tasks and notifications as text, json or yaml.
type Renderer struct {
	w      io.Writer
	format string
	color  bool
}

func NewRenderer(w io.Writer, format string, useColor bool) *Renderer {
	return &Renderer{w: w, format: format, color: useColor}
}

type laneView struct {
	Lane  board.LaneName `json:"lane" yaml:"lane"`
	Tasks []task.Task    `json:"tasks" yaml:"tasks"`
}

func boardView(b board.Board, tasks []task.Task) []laneView {
	byID := task.IndexByID(tasks)
	views := make([]laneView, 0, len(board.Lanes))
	for _, name := range board.Lanes {
		ids, _ := b.Lane(name)
		v := laneView{Lane: name, Tasks: make([]task.Task, 0, len(ids))}
		for _, id := range ids {
			if t, ok := byID[id]; ok {
				v.Tasks = append(v.Tasks, t)
			}
		}
		views = append(views, v)
	}
	return views
}

func (r *Renderer) paint(c *color.Color, format string, args ...any) string {
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprintf(format, args...)
}

func (r *Renderer) encode(v any) (bool, error) {
	switch r.format {
	case "json":
		out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("can't encode json: %w", err)
		}
		_, err = fmt.Fprintf(r.w, "%s\n", out)
		return true, err
	case "yaml":
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("can't encode yaml: %w", err)
		}
		return true, enc.Close()
	}
	return false, nil
}

func (r *Renderer) Board(b board.Board, tasks []task.Task) error {
	views := boardView(b, tasks)
	if done, err := r.encode(views); done {
		return err
	}
	_, err := io.WriteString(r.w, r.boardText(views, r.color))
	return err
}

func (r *Renderer) boardText(views []laneView, useColor bool) string {
	saved := r.color
	r.color = useColor
	defer func() { r.color = saved }()

	var buf bytes.Buffer
	header := color.New(color.Bold, color.Underline)
	for _, v := range views {
		fmt.Fprintf(&buf, "%s (%d)\n", r.paint(header, "%s", laneTitles[v.Lane]), len(v.Tasks))
		for i, t := range v.Tasks {
			fmt.Fprintf(&buf, "  %d. %s\n", i, r.taskLine(t))
		}
	}
	return buf.String()
}

func (r *Renderer) taskLine(t task.Task) string {
	line := fmt.Sprintf("%s %s %s", r.priority(t.Priority), t.Title, r.paint(color.New(color.Faint), "(%s)", t.ID))
	if t.DueDate != nil {
		line += " due " + t.DueDate.String()
	}
	return line
}

func (r *Renderer) priority(p task.Priority) string {
	var c *color.Color
	switch p {
	case task.PriorityHigh:
		c = color.New(color.FgRed)
	case task.PriorityMedium:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgGreen)
	}
	return r.paint(c, "[%s]", p.Label())
}

func (r *Renderer) Tasks(tasks []task.Task) error {
	if done, err := r.encode(tasks); done {
		return err
	}
	for _, t := range tasks {
		if _, err := fmt.Fprintf(r.w, "%-12s %s\n", t.Status.Label(), r.taskLine(t)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) Task(t task.Task) error {
	if done, err := r.encode(t); done {
		return err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", r.paint(color.New(color.Bold), "%s", t.Title))
	fmt.Fprintf(&buf, "  id:          %s\n", t.ID)
	fmt.Fprintf(&buf, "  status:      %s\n", t.Status.Label())
	fmt.Fprintf(&buf, "  priority:    %s\n", r.priority(t.Priority))
	if t.DueDate != nil {
		fmt.Fprintf(&buf, "  due:         %s\n", t.DueDate)
	}
	for _, a := range t.Assignees {
		fmt.Fprintf(&buf, "  assignee:    %s\n", a.Name)
	}
	if t.Description != "" {
		fmt.Fprintf(&buf, "\n%s\n", t.Description)
	}
	_, err := r.w.Write(buf.Bytes())
	return err
}

// Diff writes a unified diff between two boards.
func (r *Renderer) Diff(before, after board.Board, tasks []task.Task) error {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.boardText(boardView(before, tasks), false)),
		B:        difflib.SplitLines(r.boardText(boardView(after, tasks), false)),
		FromFile: "before",
		ToFile:   "after",
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("can't diff boards: %w", err)
	}
	if diff == "" {
		return nil
	}
	added, removed := color.New(color.FgGreen), color.New(color.FgRed)
	for _, line := range difflib.SplitLines(diff) {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			line = r.paint(added, "%s", line)
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			line = r.paint(removed, "%s", line)
		}
		if _, err := io.WriteString(r.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) Notification(n *eventbus.Notification) {
	c := color.New(color.FgCyan)
	if n.Failed() {
		c = color.New(color.FgRed)
	}
	fmt.Fprintf(r.w, "%s\n", r.paint(c, "* %s", n.Message))
}

// Error writes err for a human, with per-field messages for validation
// errors.
func (r *Renderer) Error(w io.Writer, err error) {
	var e *cerr.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "%s %v\n", r.paint(color.New(color.FgRed), "error:"), err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", r.paint(color.New(color.FgRed), "error:"), e.Msg)
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(w, "  %s: %s\n", k, e.Fields[k])
	}
}
