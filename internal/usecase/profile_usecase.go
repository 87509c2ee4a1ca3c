package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// profilesは本人の行だけ読める・書ける
type ProfileUsecase struct {
	profiles repo.ProfileRepository
}

func NewProfileUsecase(profiles repo.ProfileRepository) *ProfileUsecase {
	return &ProfileUsecase{profiles: profiles}
}

func (u *ProfileUsecase) CreateProfile(ctx context.Context, actorID string, id string) error {
	if err := checkOwner(actorID, id); err != nil {
		return err
	}

	if err := u.profiles.Create(ctx, model.Profile{ID: id}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *ProfileUsecase) GetProfile(ctx context.Context, actorID string, id string) (model.Profile, error) {
	if err := checkOwner(actorID, id); err != nil {
		return model.Profile{}, err
	}

	p, err := u.profiles.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Profile{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Profile{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// nilの項目はそのまま
func (u *ProfileUsecase) UpdateProfile(ctx context.Context, actorID string, id string, patch model.ProfilePatch) error {
	if err := checkOwner(actorID, id); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	err := u.profiles.Update(ctx, id, patch)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func checkOwner(actorID string, id string) error {
	if actorID == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if actorID != id {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return nil
}
