package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

const profilePrefix = "/api/v1/profile"

func (h *Handler) registerProfile(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "init-profile",
		Method:        http.MethodPost,
		Path:          profilePrefix + "/init/{user_id}",
		Summary:       "Initialize profiling session",
		Description:   "Returns the user's profile, creating an empty one when none exists.",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *UserPathInput) (*ProfileInitOutput, error) {
		p, err := h.profiles.Init(ctx, input.UserID)
		if err != nil {
			return nil, h.mapServiceError(err, input.UserID)
		}
		return &ProfileInitOutput{
			Location: profilePrefix + "/" + input.UserID,
			Body:     ProfileEnvelope{Status: "success", Profile: p},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        profilePrefix + "/{user_id}",
		Summary:     "Get user profile",
		Tags:        []string{"Profile"},
	}, func(ctx context.Context, input *UserPathInput) (*ProfileGetOutput, error) {
		p, err := h.profiles.Get(ctx, input.UserID)
		if err != nil {
			return nil, h.mapServiceError(err, input.UserID)
		}
		return &ProfileGetOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPut,
		Path:        profilePrefix + "/{user_id}",
		Summary:     "Update user profile",
		Description: "Applies the provided fields. A missing profile is created first.",
		Tags:        []string{"Profile"},
	}, func(ctx context.Context, input *ProfileUpdateInput) (*ProfileUpdateOutput, error) {
		unlock := h.turns.Lock(input.UserID)
		defer unlock()

		p, err := h.profiles.Update(ctx, input.UserID, input.Body)
		if err != nil {
			return nil, h.mapServiceError(err, input.UserID)
		}
		return &ProfileUpdateOutput{Body: ProfileEnvelope{Status: "success", Profile: p}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-profile",
		Method:        http.MethodDelete,
		Path:          profilePrefix + "/{user_id}",
		Summary:       "Delete user profile",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *UserPathInput) (*struct{}, error) {
		unlock := h.turns.Lock(input.UserID)
		defer unlock()

		if err := h.profiles.Delete(ctx, input.UserID); err != nil {
			return nil, h.mapServiceError(err, input.UserID)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile-completion",
		Method:      http.MethodGet,
		Path:        profilePrefix + "/{user_id}/completion",
		Summary:     "Get profile completion status",
		Tags:        []string{"Profile"},
	}, func(ctx context.Context, input *UserPathInput) (*CompletionOutput, error) {
		c, err := h.profiles.Completion(ctx, input.UserID)
		if err != nil {
			return nil, h.mapServiceError(err, input.UserID)
		}
		return &CompletionOutput{Body: c}, nil
	})
}
