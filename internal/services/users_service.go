package services

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
)

var (
	passwordFields = []string{"password", "passwordConfirm"}

	// profileFields are the only fields a user may change on their own account.
	profileFields = []string{"name", "email"}
)

type UsersService struct {
	*ResourceService[*model.User]

	repo ports.UserRepository
}

var _ ports.UsersService = (*UsersService)(nil)

func NewUsersService(repo ports.UserRepository, maxLimit int) *UsersService {
	return &UsersService{
		ResourceService: NewResourceService[*model.User](repo, model.UserSchema, maxLimit),
		repo:            repo,
	}
}

// UpdateOne is the administrative update; passwords never change through it.
func (s *UsersService) UpdateOne(ctx context.Context, id model.ID, patch model.Patch) (*model.User, error) {
	if err := rejectPasswordFields(patch); err != nil {
		return nil, err
	}

	return s.ResourceService.UpdateOne(ctx, id, patch)
}

// UpdateMe applies the name and email of patch and silently drops every other field.
func (s *UsersService) UpdateMe(ctx context.Context, user *model.User, patch model.Patch) (*model.User, error) {
	if err := rejectPasswordFields(patch); err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, model.WrapAppError(err, http.StatusBadRequest, "Request body must be a valid JSON object.")
	}

	allowed := make(map[string]json.RawMessage, len(profileFields))
	for key, value := range fields {
		if slices.Contains(profileFields, key) {
			allowed[key] = value
		}
	}

	filtered, err := json.Marshal(allowed)
	if err != nil {
		return nil, err
	}

	return s.ResourceService.UpdateOne(ctx, user.ID, filtered)
}

func (s *UsersService) DeactivateMe(ctx context.Context, user *model.User) error {
	return s.repo.SetActive(ctx, user.ID, false)
}

func rejectPasswordFields(patch model.Patch) error {
	keys, err := patch.Keys()
	if err != nil {
		return err
	}

	for _, key := range keys {
		if slices.Contains(passwordFields, key) {
			return model.NewAppError(http.StatusBadRequest, "This route is not for password updates.")
		}
	}

	return nil
}
