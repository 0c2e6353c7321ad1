package web

import (
	"context"
	"slices"
	"strings"

	"github.com/tgienger/yuflow/internal/docstore"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

func (a *Adapter) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := a.store.View(func(tx *docstore.Tx) error {
		categories = a.categories.All(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(categories, func(x, y models.Category) int {
		return strings.Compare(x.Name, y.Name)
	})
	return categories, nil
}

func (a *Adapter) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category *models.Category
	err := a.store.View(func(tx *docstore.Tx) error {
		if c, ok := a.categories.Get(tx, id); ok {
			category = &c
		}
		return nil
	})
	return category, err
}

func (a *Adapter) CreateCategory(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error) {
	in, err := storage.NormalizeCategory(in)
	if err != nil {
		return nil, err
	}

	category := models.Category{Name: in.Name, Color: in.Color, CreatedAt: a.now()}
	err = a.store.Update(func(tx *docstore.Tx) error {
		id, err := a.categories.Add(tx, category)
		category.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (a *Adapter) UpdateCategory(ctx context.Context, id int64, in models.UpdateCategoryInput) (*models.Category, error) {
	if err := storage.ValidateCategoryUpdate(in); err != nil {
		return nil, err
	}

	var category models.Category
	err := a.store.Update(func(tx *docstore.Tx) error {
		c, ok := a.categories.Get(tx, id)
		if !ok {
			return storage.NotFound("category", id)
		}
		in.Apply(&c)
		category = c
		_, err := a.categories.Put(tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory clears the category from its tasks, then deletes it
func (a *Adapter) DeleteCategory(ctx context.Context, id int64) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		tasks, err := a.tasks.Where(tx, "category_id", id)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			t.CategoryID = nil
			if _, err := a.tasks.Put(tx, t); err != nil {
				return err
			}
		}
		return a.categories.Delete(tx, id)
	})
}
