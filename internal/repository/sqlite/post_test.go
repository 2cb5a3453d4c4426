package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// seedUser creates a user to hang posts off. posts.author_id has a foreign
// key, so every post test needs at least one real user.
func seedUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()

	u := &model.User{Username: username, PasswordHash: "irrelevant"}
	if err := db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user %q: %v", username, err)
	}
	return u
}

func seedPost(t *testing.T, db *DB, authorID int64, title string) *model.Post {
	t.Helper()

	p := &model.Post{AuthorID: authorID, Title: title, Body: "body of " + title}
	if err := db.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("seeding post %q: %v", title, err)
	}
	return p
}

func TestPostCreate_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	p := &model.Post{AuthorID: alice.ID, Title: "Hello", Body: "First post."}
	if err := db.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.ID == 0 {
		t.Error("Create() did not assign an ID")
	}
	if p.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}
}

func TestPostCreate_UnknownAuthorRejected(t *testing.T) {
	db := newTestDB(t)

	p := &model.Post{AuthorID: 12345, Title: "Orphan", Body: "No author."}
	if err := db.Posts().Create(context.Background(), p); err == nil {
		t.Fatal("Create() should fail when author_id references no user")
	}
}

func TestPostGetByID_IncludesAuthorName(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	created := seedPost(t, db, alice.ID, "Hello")

	got, err := db.Posts().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.AuthorName != "alice" {
		t.Errorf("AuthorName = %q, want %q", got.AuthorName, "alice")
	}
	if got.Title != "Hello" {
		t.Errorf("Title = %q, want %q", got.Title, "Hello")
	}
}

func TestPostGetByID_Missing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Posts().GetByID(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestPostList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	for i := 1; i <= 3; i++ {
		seedPost(t, db, alice.ID, fmt.Sprintf("post %d", i))
	}

	posts, err := db.Posts().List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(posts) != 3 {
		t.Fatalf("List() returned %d posts, want 3", len(posts))
	}

	// Posts created back-to-back can share a timestamp; the id tiebreak
	// still puts the later insert first.
	want := []string{"post 3", "post 2", "post 1"}
	for i, title := range want {
		if posts[i].Title != title {
			t.Errorf("posts[%d].Title = %q, want %q", i, posts[i].Title, title)
		}
	}
}

func TestPostList_Pagination(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	for i := 1; i <= 7; i++ {
		seedPost(t, db, alice.ID, fmt.Sprintf("post %d", i))
	}

	ctx := context.Background()

	pageOne, err := db.Posts().List(ctx, repository.ListOptions{Limit: 3, Offset: 0})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pageOne) != 3 {
		t.Fatalf("page 1 has %d posts, want 3", len(pageOne))
	}
	if pageOne[0].Title != "post 7" {
		t.Errorf("page 1 starts at %q, want %q", pageOne[0].Title, "post 7")
	}

	pageThree, err := db.Posts().List(ctx, repository.ListOptions{Limit: 3, Offset: 6})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pageThree) != 1 {
		t.Fatalf("page 3 has %d posts, want 1", len(pageThree))
	}
	if pageThree[0].Title != "post 1" {
		t.Errorf("page 3 has %q, want %q", pageThree[0].Title, "post 1")
	}
}

func TestPostList_EmptyTable(t *testing.T) {
	db := newTestDB(t)

	posts, err := db.Posts().List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("List() returned %d posts, want 0", len(posts))
	}
}

func TestPostCount(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	ctx := context.Background()

	n, err := db.Posts().Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d on empty table, want 0", n)
	}

	seedPost(t, db, alice.ID, "one")
	seedPost(t, db, alice.ID, "two")

	n, err = db.Posts().Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestPostUpdate_RewritesTitleAndBody(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	created := seedPost(t, db, alice.ID, "Original")
	ctx := context.Background()

	created.Title = "Edited"
	created.Body = "New body."
	if err := db.Posts().Update(ctx, created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.Posts().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Edited" || got.Body != "New body." {
		t.Errorf("post = (%q, %q), want (%q, %q)", got.Title, got.Body, "Edited", "New body.")
	}
	if got.AuthorID != alice.ID {
		t.Errorf("AuthorID changed to %d, want %d", got.AuthorID, alice.ID)
	}
}

func TestPostUpdate_Missing(t *testing.T) {
	db := newTestDB(t)

	err := db.Posts().Update(context.Background(), &model.Post{ID: 9999, Title: "x", Body: "y"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestPostDelete(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	created := seedPost(t, db, alice.ID, "Doomed")
	ctx := context.Background()

	if err := db.Posts().Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Posts().GetByID(ctx, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	// A second delete of the same id reports NotFound.
	if err := db.Posts().Delete(ctx, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestReset_WipesEverything(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	seedPost(t, db, alice.ID, "gone soon")

	if err := db.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	n, err := db.Posts().Count(context.Background())
	if err != nil {
		t.Fatalf("Count() after reset error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d after reset, want 0", n)
	}

	// The schema is back: inserting works again.
	seedUser(t, db, "alice")
}
