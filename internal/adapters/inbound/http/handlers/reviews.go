package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/domain/model"
)

// NestedReviewOptions scope review listings to the tour in the path and fill in the
// tour and author of a new review when the body leaves them out.
func NestedReviewOptions(populate ...string) ResourceOptions[*model.Review] {
	return ResourceOptions[*model.Review]{
		Populate: populate,
		Scope: func(r *http.Request) (model.Specification, error) {
			if chi.URLParam(r, ParamTourID) == "" {
				return nil, nil
			}

			tourID, err := pathID(r, ParamTourID)
			if err != nil {
				return nil, err
			}

			return model.Eq("tour", tourID), nil
		},
		Prefill: func(r *http.Request, review *model.Review) error {
			if review.Tour.IsZero() && chi.URLParam(r, ParamTourID) != "" {
				tourID, err := pathID(r, ParamTourID)
				if err != nil {
					return err
				}

				review.Tour = tourID
			}

			if user := middleware.CurrentUser(r.Context()); review.User.IsZero() && user != nil {
				review.User = user.ID
			}

			return nil
		},
	}
}
