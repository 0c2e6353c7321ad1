package web

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/tgienger/yuflow/internal/docstore"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

func byName(x, y models.Tag) int {
	if c := strings.Compare(x.Name, y.Name); c != 0 {
		return c
	}
	return cmp.Compare(x.ID, y.ID)
}

func (a *Adapter) GetTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := a.store.View(func(tx *docstore.Tx) error {
		tags = a.tags.All(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tags, byName)
	return tags, nil
}

func (a *Adapter) CreateTag(ctx context.Context, in models.CreateTagInput) (*models.Tag, error) {
	if err := storage.ValidateTag(in); err != nil {
		return nil, err
	}

	tag := models.Tag{Name: in.Name, CreatedAt: a.now()}
	err := a.store.Update(func(tx *docstore.Tx) error {
		id, err := a.tags.Add(tx, tag)
		tag.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag removes the tag from every task, then deletes it
func (a *Adapter) DeleteTag(ctx context.Context, id int64) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		if _, err := a.taskTags.DeleteWhere(tx, "tag_id", id); err != nil {
			return err
		}
		return a.tags.Delete(tx, id)
	})
}

func (a *Adapter) GetTaskTags(ctx context.Context, taskID int64) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := a.store.View(func(tx *docstore.Tx) error {
		links, err := a.taskTags.Where(tx, "task_id", taskID)
		if err != nil {
			return err
		}
		for _, l := range links {
			if tag, ok := a.tags.Get(tx, l.TagID); ok {
				tags = append(tags, tag)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tags, byName)
	return tags, nil
}

func (a *Adapter) GetAllTaskTags(ctx context.Context) ([]models.TaskTag, error) {
	var links []models.TaskTag
	err := a.store.View(func(tx *docstore.Tx) error {
		links = a.taskTags.All(tx)
		return nil
	})
	return links, err
}

// AddTagToTask links a tag to a task; linking twice keeps one link
func (a *Adapter) AddTagToTask(ctx context.Context, taskID, tagID int64) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		if _, ok := a.tasks.Get(tx, taskID); !ok {
			return storage.NotFound("task", taskID)
		}
		if _, ok := a.tags.Get(tx, tagID); !ok {
			return storage.NotFound("tag", tagID)
		}
		_, err := a.taskTags.Put(tx, models.TaskTag{TaskID: taskID, TagID: tagID})
		return err
	})
}

func (a *Adapter) RemoveTagFromTask(ctx context.Context, taskID, tagID int64) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		return a.taskTags.Delete(tx, models.TaskTag{TaskID: taskID, TagID: tagID})
	})
}
