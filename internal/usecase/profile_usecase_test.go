package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const userA = "7c1e6d1a-2b3c-4d5e-8f90-a1b2c3d4e5f6"
const userB = "7c1e6d1a-2b3c-4d5e-8f90-a1b2c3d4e5f7"

func TestProfileUsecase_OtherUsersRowIsForbidden(t *testing.T) {
	uc := usecase.NewProfileUsecase(new(ProfileRepoMock))

	_, err := uc.GetProfile(context.Background(), userA, userB)
	assertHTTPError(t, err, http.StatusForbidden, "forbidden")

	err = uc.UpdateProfile(context.Background(), userA, userB, model.ProfilePatch{})
	assertHTTPError(t, err, http.StatusForbidden, "forbidden")
}

func TestProfileUsecase_NoActorIsUnauthorized(t *testing.T) {
	uc := usecase.NewProfileUsecase(new(ProfileRepoMock))

	err := uc.CreateProfile(context.Background(), "", userA)
	assertHTTPError(t, err, http.StatusUnauthorized, "unauthorized")
}

func TestProfileUsecase_CreateProfile_Empty(t *testing.T) {
	pRepo := new(ProfileRepoMock)
	uc := usecase.NewProfileUsecase(pRepo)

	pRepo.On("Create", mock.Anything, model.Profile{ID: userA}).Return(nil)

	require.NoError(t, uc.CreateProfile(context.Background(), userA, userA))
	pRepo.AssertExpectations(t)
}

func TestProfileUsecase_GetProfile_NotFound(t *testing.T) {
	pRepo := new(ProfileRepoMock)
	uc := usecase.NewProfileUsecase(pRepo)

	pRepo.On("FindByID", mock.Anything, userA).Return(model.Profile{}, repo.ErrNotFound)

	_, err := uc.GetProfile(context.Background(), userA, userA)
	assertHTTPError(t, err, http.StatusNotFound, "not found")
}

func TestProfileUsecase_UpdateProfile_EmptyPatchSkipsRepo(t *testing.T) {
	pRepo := new(ProfileRepoMock)
	uc := usecase.NewProfileUsecase(pRepo)

	require.NoError(t, uc.UpdateProfile(context.Background(), userA, userA, model.ProfilePatch{}))
	pRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileUsecase_UpdateProfile_Success(t *testing.T) {
	pRepo := new(ProfileRepoMock)
	uc := usecase.NewProfileUsecase(pRepo)

	name := "Ann"
	patch := model.ProfilePatch{FirstName: &name}
	pRepo.On("Update", mock.Anything, userA, patch).Return(nil)

	err := uc.UpdateProfile(context.Background(), userA, userA, patch)
	assert.NoError(t, err)
	pRepo.AssertExpectations(t)
}
