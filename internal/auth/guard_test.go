package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
)

func TestRequireAuthenticated_AnonymousContext(t *testing.T) {
	_, err := RequireAuthenticated(context.Background())
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireAuthenticated_ResolvedUser(t *testing.T) {
	want := &model.User{ID: 3, Username: "alice"}
	ctx := context.WithValue(context.Background(), currentUserKey, want)

	got, err := RequireAuthenticated(ctx)
	if err != nil {
		t.Fatalf("RequireAuthenticated() error = %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("user ID = %d, want %d", got.ID, want.ID)
	}
}

func TestRequireOwnership(t *testing.T) {
	alice := &model.User{ID: 1, Username: "alice"}

	cases := []struct {
		name     string
		user     *model.User
		authorID int64
		wantErr  error
	}{
		{"author may edit their own post", alice, 1, nil},
		{"another user is forbidden", alice, 2, apperror.ErrForbidden},
		{"anonymous is unauthenticated, not forbidden", nil, 1, apperror.ErrUnauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireOwnership(tc.user, tc.authorID)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("RequireOwnership() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("RequireOwnership() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCurrentUser_EmptyContext(t *testing.T) {
	if user, ok := CurrentUser(context.Background()); ok || user != nil {
		t.Errorf("CurrentUser() = (%v, %v), want (nil, false)", user, ok)
	}
}
