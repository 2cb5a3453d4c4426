package auth

import (
	"context"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
)

// RequireAuthenticated returns the request's resolved user, or
// apperror.ErrUnauthenticated when the request is anonymous. Handlers call
// it at the top of every route that needs a logged-in user and map the
// error to a redirect-to-login.
func RequireAuthenticated(ctx context.Context) (*model.User, error) {
	user, ok := CurrentUser(ctx)
	if !ok {
		return nil, apperror.Unauthenticated("you need to be logged in to access this page")
	}
	return user, nil
}

// RequireOwnership checks that user may mutate a resource owned by authorID.
//
// The authentication check comes first: an anonymous caller gets
// ErrUnauthenticated (login redirect), never ErrForbidden. Ownership is
// strict equality on the user id — there are no roles, groups, or
// delegation in this system.
func RequireOwnership(user *model.User, authorID int64) error {
	if user == nil {
		return apperror.Unauthenticated("you need to be logged in to access this page")
	}
	if user.ID != authorID {
		return apperror.Forbidden("you are not the author of this post")
	}
	return nil
}
