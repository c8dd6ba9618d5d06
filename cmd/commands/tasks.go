package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/dohr-michael/taskdeck/clients/ws"
	"github.com/dohr-michael/taskdeck/internal/client"
	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/storage"
	"github.com/dohr-michael/taskdeck/internal/store"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

const requestTimeout = 15 * time.Second

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format: table, json or yaml",
		Value:   outputTable,
	}
}

func taskFieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "priority",
			Aliases: []string{"p"},
			Usage:   "urgent, high, medium or low",
		},
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Tag (repeatable)",
		},
		&cli.StringFlag{
			Name:  "due",
			Usage: "Due date: YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC 3339",
		},
		&cli.StringFlag{
			Name:  "estimate",
			Usage: "Estimated time in minutes",
		},
	}
}

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage todos through the gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway base URL (defaults to client.gateway_url)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "view",
						Usage: "active, completed or all",
						Value: string(tasks.ViewActive),
					},
					&cli.StringSliceFlag{
						Name:    "priority",
						Aliases: []string{"p"},
						Usage:   "Only these priorities (repeatable)",
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Match title or tags, case-insensitive",
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "due_date, priority, created or updated",
						Value: string(tasks.SortDueDate),
					},
					outputFlag(),
				},
				Action: runTasksList,
			},
			{
				Name:      "add",
				Usage:     "Create a task",
				ArgsUsage: "<title>",
				Flags:     taskFieldFlags(),
				Action:    runTasksAdd,
			},
			{
				Name:      "edit",
				Usage:     "Change fields of a task",
				ArgsUsage: "<task_id>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "New title",
					},
					&cli.BoolFlag{
						Name:  "clear-tags",
						Usage: "Remove every tag",
					},
				}, taskFieldFlags()...),
				Action: runTasksEdit,
			},
			patchCommand("done", "Mark a task completed", tasks.Patch{Completed: tasks.Ptr(true)}),
			patchCommand("undo", "Mark a task active again", tasks.Patch{Completed: tasks.Ptr(false)}),
			patchCommand("star", "Star a task", tasks.Patch{Starred: tasks.Ptr(true)}),
			patchCommand("unstar", "Unstar a task", tasks.Patch{Starred: tasks.Ptr(false)}),
			patchCommand("archive", "Archive a task", tasks.Patch{Archived: tasks.Ptr(true)}),
			{
				Name:      "rm",
				Usage:     "Delete a task",
				ArgsUsage: "<task_id>",
				Action:    runTasksRemove,
			},
			{
				Name:      "show",
				Usage:     "Show task details",
				ArgsUsage: "<task_id>",
				Flags:     []cli.Flag{outputFlag()},
				Action:    runTasksShow,
			},
			{
				Name:   "stats",
				Usage:  "Show active, completed, overdue and due-today counts",
				Flags:  []cli.Flag{outputFlag()},
				Action: runTasksStats,
			},
			{
				Name:   "watch",
				Usage:  "Print task changes as they happen",
				Action: runTasksWatch,
			},
			{
				Name:  "history",
				Usage: "Show task changes recorded by the local gateway",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of most recent changes",
						Value:   20,
					},
					outputFlag(),
				},
				Action: runTasksHistory,
			},
		},
		DefaultCommand: "list",
	}
}

func newTaskClient(cmd *cli.Command) (*client.Client, string, error) {
	url := cmd.String("gateway")
	if url == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, "", err
		}
		url = cfg.Client.GatewayURL
	}
	return client.New(url, client.WithHTTPClient(&http.Client{Timeout: requestTimeout})), url, nil
}

func taskID(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", fmt.Errorf("usage: taskdeck tasks %s <task_id>", cmd.Name)
	}
	return id, nil
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	format, err := parseOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	view := tasks.NewView()
	if view.Mode, err = tasks.ParseViewMode(cmd.String("view")); err != nil {
		return err
	}
	if view.SortBy, err = tasks.ParseSortField(cmd.String("sort")); err != nil {
		return err
	}
	for _, s := range cmd.StringSlice("priority") {
		p, err := tasks.ParsePriority(s)
		if err != nil {
			return err
		}
		view.Priorities[p] = true
	}
	view.Search = cmd.String("search")

	c, _, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	list, err := c.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	return printTasks(os.Stdout, view.Apply(list), format, time.Now())
}

func runTasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if title == "" {
		return fmt.Errorf("usage: taskdeck tasks add <title>")
	}

	d := tasks.NewDraft()
	d.Title = title
	if err := fillDraft(cmd, &d); err != nil {
		return err
	}

	c, _, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	// The store reloads after a create, so the printed count is the
	// backend's view including the new task.
	s := store.New(c)
	defer s.Close()
	t, err := s.Add(ctx, d.Payload())
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	st := s.Snapshot()
	if st.Error != "" {
		fmt.Printf("Task %s created (%s).\n", t.ID, st.Error)
		return nil
	}
	fmt.Printf("Task %s created, %d tasks.\n", t.ID, len(st.Tasks))
	return nil
}

// fillDraft copies the shared field flags into d, rejecting values the draft
// would otherwise silently drop.
func fillDraft(cmd *cli.Command, d *tasks.Draft) error {
	if cmd.IsSet("priority") {
		p, err := tasks.ParsePriority(cmd.String("priority"))
		if err != nil {
			return err
		}
		d.Priority = p
	}
	for _, tag := range cmd.StringSlice("tag") {
		d.CurrentTag = tag
		d.AddTag()
	}
	if cmd.IsSet("due") {
		d.DueDate = cmd.String("due")
		if tasks.ParseDueDate(d.DueDate) == nil {
			return fmt.Errorf("invalid due date %q", d.DueDate)
		}
	}
	if cmd.IsSet("estimate") {
		d.EstimatedTime = cmd.String("estimate")
		if tasks.ParseEstimate(d.EstimatedTime) == nil {
			return fmt.Errorf("invalid estimate %q: must be a whole number of minutes >= 0", d.EstimatedTime)
		}
	}
	return nil
}

func runTasksEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := taskID(cmd)
	if err != nil {
		return err
	}

	var d tasks.Draft
	if err := fillDraft(cmd, &d); err != nil {
		return err
	}
	p := tasks.Patch{
		DueDate:       tasks.ParseDueDate(d.DueDate),
		EstimatedTime: tasks.ParseEstimate(d.EstimatedTime),
	}
	if cmd.IsSet("title") {
		title := strings.TrimSpace(cmd.String("title"))
		if title == "" {
			return errors.New("title cannot be empty")
		}
		p.Title = &title
	}
	if cmd.IsSet("priority") {
		p.Priority = &d.Priority
	}
	switch {
	case cmd.Bool("clear-tags"):
		p.Tags = []string{}
	case len(d.Tags) > 0:
		p.Tags = d.Tags
	}
	if p.IsEmpty() {
		return errors.New("nothing to change: pass at least one field flag")
	}

	return sendPatch(ctx, cmd, id, p)
}

func patchCommand(name, usage string, p tasks.Patch) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<task_id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := taskID(cmd)
			if err != nil {
				return err
			}
			return sendPatch(ctx, cmd, id, p)
		},
	}
}

func sendPatch(ctx context.Context, cmd *cli.Command, id string, p tasks.Patch) error {
	c, _, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	if _, err := c.Update(ctx, id, p); err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	fmt.Printf("Task %s updated.\n", id)
	return nil
}

func runTasksRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := taskID(cmd)
	if err != nil {
		return err
	}
	c, _, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	if err := c.Remove(ctx, id); err != nil {
		if client.StatusOf(err) == http.StatusNotFound {
			return fmt.Errorf("task %s not found", id)
		}
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	fmt.Printf("Task %s deleted.\n", id)
	return nil
}

func runTasksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := taskID(cmd)
	if err != nil {
		return err
	}
	format, err := parseOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	c, _, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	list, err := c.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range list {
		if t.ID != id {
			continue
		}
		if format != outputTable {
			return printValue(os.Stdout, t, format)
		}
		printTask(os.Stdout, t, time.Now())
		return nil
	}
	return fmt.Errorf("task %s not found", id)
}

func runTasksStats(ctx context.Context, cmd *cli.Command) error {
	format, err := parseOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	c, _, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	list, err := c.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	s := tasks.ComputeStats(list, time.Now())
	if format != outputTable {
		return printValue(os.Stdout, s, format)
	}
	fmt.Printf("Active:      %d\n", s.Active)
	fmt.Printf("Completed:   %d\n", s.Completed)
	fmt.Printf("Overdue:     %d\n", s.Overdue)
	fmt.Printf("Due today:   %d\n", s.DueToday)
	return nil
}

func runTasksWatch(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	_, url, err := newTaskClient(cmd)
	if err != nil {
		return err
	}

	ws, err := wsclient.Dial(ctx, wsclient.URL(url))
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer ws.Close()

	fmt.Fprintf(os.Stderr, "watching %s (ctrl+c to stop)\n", url)
	return ws.Watch(func(c wsclient.Change) {
		fmt.Printf("%s\t%s\t%s\n", time.Now().Format("15:04:05"), c.Op, c.ID)
	})
}

func runTasksHistory(_ context.Context, cmd *cli.Command) error {
	format, err := parseOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	changes, err := storage.ReadChanges(changesDir(), cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("read change log: %w", err)
	}
	if format != outputTable {
		if changes == nil {
			changes = []events.Event{}
		}
		return printValue(os.Stdout, changes, format)
	}
	if len(changes) == 0 {
		fmt.Println("No changes recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOP\tID")
	for _, e := range changes {
		op, _ := e.Payload["op"].(string)
		id, _ := e.Payload["id"].(string)
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), op, id)
	}
	return w.Flush()
}
