package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// profilesの行アクセス（IDはusers.id）
type ProfileRepository interface {
	Create(ctx context.Context, p model.Profile) error
	FindByID(ctx context.Context, id string) (model.Profile, error)
	Update(ctx context.Context, id string, patch model.ProfilePatch) error
}
