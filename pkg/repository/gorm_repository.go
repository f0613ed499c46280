package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/narwhalmedia/mediaresolver/pkg/errors"
)

// Create creates a new entity in the database.
func Create[T any](ctx context.Context, db *gorm.DB, entity *T) error {
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return pkgerrors.Wrap(pkgerrors.ErrorTypeConflict, "entity already exists", err)
		}
		return err
	}
	return nil
}

// FindByID finds an entity by its ID. It preloads specified associations.
func FindByID[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, preloads ...string) (*T, error) {
	var entity T
	query := db.WithContext(ctx)
	for _, preload := range preloads {
		query = query.Preload(preload)
	}

	if err := query.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("entity not found")
		}
		return nil, err
	}
	return &entity, nil
}

// FindOneBy finds a single entity by a query condition.
func FindOneBy[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (*T, error) {
	var entity T
	if err := db.WithContext(ctx).Where(query, args...).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("entity not found")
		}
		return nil, err
	}
	return &entity, nil
}

// Update saves every column of an entity.
func Update[T any](ctx context.Context, db *gorm.DB, entity *T) error {
	if err := db.WithContext(ctx).Save(entity).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return pkgerrors.Wrap(pkgerrors.ErrorTypeConflict, "entity conflicts with an existing row", err)
		}
		return err
	}
	return nil
}
