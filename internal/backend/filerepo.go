package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dohr-michael/taskdeck/internal/storage/dirstore"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// FileRepo stores each task as <dir>/<uuid>/meta.json.
type FileRepo struct {
	store *dirstore.Store[tasks.Task]
	clock *clock
}

// OpenFileRepo creates a file repository rooted at dir.
func OpenFileRepo(dir string) *FileRepo {
	return &FileRepo{
		store: dirstore.New[tasks.Task](dir, "task"),
		clock: newClock(),
	}
}

func (r *FileRepo) Close() error { return nil }

func (r *FileRepo) List(_ context.Context, f Filter) ([]tasks.Task, error) {
	all, err := r.store.List()
	if err != nil {
		return nil, err
	}
	list := []tasks.Task{}
	for _, t := range all {
		if f.Match(t) {
			list = append(list, t)
		}
	}
	sortByDue(list, func(a, b tasks.Task) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return list, nil
}

func (r *FileRepo) Get(_ context.Context, id string) (tasks.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return tasks.Task{}, ErrNotFound
	}
	t, err := r.store.Get(id)
	return t, mapNotFound(err)
}

func (r *FileRepo) Create(_ context.Context, nt tasks.NewTask) (tasks.Task, error) {
	now := r.clock.Now()
	t := tasks.Task{
		ID:            uuid.NewString(),
		Title:         nt.Title,
		Completed:     nt.Completed,
		Starred:       nt.Starred,
		Archived:      nt.Archived,
		Priority:      nt.Priority,
		Tags:          nt.Tags,
		DueDate:       nt.DueDate,
		EstimatedTime: nt.EstimatedTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if err := r.store.Put(t.ID, t); err != nil {
		return tasks.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (r *FileRepo) Update(_ context.Context, id string, u Update) (tasks.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return tasks.Task{}, ErrNotFound
	}
	t, err := r.store.Update(id, func(t *tasks.Task) error {
		u.Apply(t)
		t.UpdatedAt = r.clock.Now()
		return nil
	})
	return t, mapNotFound(err)
}

func (r *FileRepo) Delete(_ context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return mapNotFound(r.store.Delete(id))
}

func mapNotFound(err error) error {
	if errors.Is(err, dirstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
