package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/filter"
	"github.com/kazz187/taskboard/internal/task"
)

const shellHelp = `commands:
  board                          show the board
  list                           list tasks in board order
  show <id>                      show a task
  filter key=value...            set filters (search, status, priority, due)
  clear                          clear all filters
  drag <lane> <index> <lane> <index>
                                 drag a task from one lane position to another
  drop <lane> <index>            drag a task and drop it outside the board
  move <id> <lane> [index]       move a task to a lane, at the end by default
  create <title>                 create a task
  delete <id>                    delete a task
  reload                         fetch the tasks again
  quit                           leave the shell
`

// shell reads commands from in until EOF or quit. Drags do not wait for the
// backend; their outcome is reported as a notification before the next prompt.
func (a *App) shell(ctx context.Context, in io.Reader) error {
	subID, notifications := a.bus.Subscribe(64)
	defer a.bus.Unsubscribe(subID)

	if err := a.store.Load(ctx); err != nil {
		return err
	}
	if err := a.printBoard(); err != nil {
		a.render.Error(a.render.w, err)
	}

	scanner := bufio.NewScanner(in)
	for {
		a.drain(notifications)
		fmt.Fprint(a.render.w, "> ")
		if !scanner.Scan() {
			break
		}
		args, err := shell.Fields(scanner.Text(), nil)
		if err != nil {
			a.render.Error(a.render.w, err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			break
		}
		if err := a.exec(ctx, args); err != nil {
			a.render.Error(a.render.w, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	a.coord.Close()
	a.drain(notifications)
	return scanner.Err()
}

func (a *App) drain(notifications <-chan *eventbus.Notification) {
	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				return
			}
			a.render.Notification(n)
		default:
			return
		}
	}
}

// printBoard shows the board even when some tasks were left off it, then
// reports those tasks.
func (a *App) printBoard() error {
	b, perr := a.store.Board()
	if err := a.render.Board(b, a.store.Tasks()); err != nil {
		return err
	}
	return perr
}

func (a *App) exec(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "help", "?":
		_, err := io.WriteString(a.render.w, shellHelp)
		return err
	case "board", "b":
		return a.printBoard()
	case "list", "ls":
		b, perr := a.store.Board()
		if err := a.render.Tasks(b.Flatten(a.store.Tasks())); err != nil {
			return err
		}
		return perr
	case "show":
		if len(args) != 1 {
			return usage("show <id>")
		}
		t, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		return a.render.Task(t)
	case "filter":
		kv := make(map[string]string, len(args))
		for _, arg := range args {
			k, v, ok := strings.Cut(arg, "=")
			if !ok {
				return usage("filter key=value...")
			}
			kv[k] = v
		}
		c, err := filter.ParseCriteria(kv)
		if err != nil {
			return err
		}
		if err := a.store.SetCriteria(ctx, c); err != nil {
			return err
		}
		return a.printBoard()
	case "clear":
		if err := a.store.SetCriteria(ctx, filter.Clear()); err != nil {
			return err
		}
		return a.printBoard()
	case "reload":
		if err := a.store.Load(ctx); err != nil {
			return err
		}
		return a.printBoard()
	case "drag":
		if len(args) != 4 {
			return usage("drag <lane> <index> <lane> <index>")
		}
		from, fromIndex, err := location(args[0], args[1])
		if err != nil {
			return err
		}
		to, toIndex, err := location(args[2], args[3])
		if err != nil {
			return err
		}
		return a.drop(ctx, board.Move(from, fromIndex, to, toIndex))
	case "drop":
		if len(args) != 2 {
			return usage("drop <lane> <index>")
		}
		from, fromIndex, err := location(args[0], args[1])
		if err != nil {
			return err
		}
		return a.drop(ctx, board.DroppedOutside(from, fromIndex))
	case "move", "mv":
		if len(args) < 2 || len(args) > 3 {
			return usage("move <id> <lane> [index]")
		}
		lane, err := board.ParseLaneName(args[1])
		if err != nil {
			return err
		}
		index := -1
		if len(args) == 3 {
			if index, err = strconv.Atoi(args[2]); err != nil {
				return usage("move <id> <lane> [index]")
			}
		}
		// Tasks left off the board cannot be dragged; the rest can.
		b, _ := a.store.Board()
		ev, err := dragTo(b, args[0], lane, index)
		if err != nil {
			return err
		}
		return a.drop(ctx, ev)
	case "create", "add":
		if len(args) == 0 {
			return usage("create <title>")
		}
		if _, err := a.store.Create(ctx, task.CreateInput{Title: strings.Join(args, " ")}); err != nil {
			return err
		}
		return a.printBoard()
	case "delete", "rm":
		if len(args) != 1 {
			return usage("delete <id>")
		}
		if err := a.store.Delete(ctx, args[0]); err != nil {
			return err
		}
		return a.printBoard()
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

// drop applies a drag and shows the board at once. The persistence outcome
// arrives later as a notification.
func (a *App) drop(ctx context.Context, ev board.DragEvent) error {
	if _, err := a.store.Drop(ctx, ev); err != nil {
		return err
	}
	return a.printBoard()
}

func location(lane, index string) (board.LaneName, int, error) {
	name, err := board.ParseLaneName(lane)
	if err != nil {
		return "", 0, err
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return "", 0, fmt.Errorf("invalid index %q", index)
	}
	return name, i, nil
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}
