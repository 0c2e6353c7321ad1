package web

import (
	"context"

	"github.com/tgienger/yuflow/internal/docstore"
	"github.com/tgienger/yuflow/internal/models"
)

func (a *Adapter) GetSetting(ctx context.Context, key string) (*string, error) {
	var value *string
	err := a.store.View(func(tx *docstore.Tx) error {
		if s, ok := a.settings.Get(tx, key); ok {
			value = &s.Value
		}
		return nil
	})
	return value, err
}

func (a *Adapter) SetSetting(ctx context.Context, key, value string) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		_, err := a.settings.Put(tx, models.Setting{Key: key, Value: value, UpdatedAt: a.now()})
		return err
	})
}

func (a *Adapter) GetSettings(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	err := a.store.View(func(tx *docstore.Tx) error {
		settings = a.settings.All(tx)
		return nil
	})
	return settings, err
}

// ClearAll empties every collection in one transaction
func (a *Adapter) ClearAll(ctx context.Context) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		for _, fn := range []func(*docstore.Tx) error{
			a.taskTags.Clear,
			a.tasks.Clear,
			a.tags.Clear,
			a.categories.Clear,
			a.settings.Clear,
		} {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
