package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// DefaultPageSize is the index pagination size when the caller passes
// nothing sensible.
const DefaultPageSize = 5

// PostService handles business logic for blog posts: validation, pagination
// arithmetic, and the ownership rule for mutations.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		logger: logger,
	}
}

// PostPage is one page of the index.
type PostPage struct {
	Posts      []model.Post
	Page       int // the page actually returned, after clamping
	TotalPages int
}

// List returns one page of posts, newest first.
//
// PAGE CLAMPING:
// A request below page 1 becomes page 1; a request past the end becomes the
// last page (when any posts exist). Someone following a stale "?page=9"
// link lands on real content instead of an empty page. With zero posts,
// TotalPages is 0 and the slice is empty whatever page was asked for.
func (s *PostService) List(ctx context.Context, page, pageSize int) (*PostPage, error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total, err := s.posts.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count posts", slog.String("error", err.Error()))
		return nil, wrapStore(err, "counting posts")
	}

	// Ceiling division without the float detour.
	totalPages := (total + pageSize - 1) / pageSize

	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	if total == 0 {
		return &PostPage{Posts: []model.Post{}, Page: page, TotalPages: 0}, nil
	}

	posts, err := s.posts.List(ctx, repository.ListOptions{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, wrapStore(err, "listing posts")
	}

	return &PostPage{Posts: posts, Page: page, TotalPages: totalPages}, nil
}

// Get retrieves a single post. Returns apperror.ErrNotFound if no post has
// that id.
func (s *PostService) Get(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "getting post")
	}
	return post, nil
}

// Create validates and saves a new post for authorID.
//
// Title and body are trimmed BEFORE validation and storage, so a
// whitespace-only title fails the same way an empty one does, and "  T  "
// is stored as "T".
func (s *PostService) Create(ctx context.Context, authorID int64, title, body string) (*model.Post, error) {
	title, body, err := validatePostFields(title, body)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID: authorID,
		Title:    title,
		Body:     body,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.Int64("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, wrapStore(err, "creating post")
	}

	s.logger.Info("post created",
		slog.Int64("postID", post.ID),
		slog.Int64("authorID", authorID),
	)

	return post, nil
}

// Update replaces a post's title and body on behalf of actor.
//
// FETCH, GUARD, WRITE:
// The existing post is fetched first so the ownership check runs against
// the stored author_id, then the UPDATE touches title/body only. The write
// itself does not re-check ownership — the guard already ran in this call.
func (s *PostService) Update(ctx context.Context, actor *model.User, id int64, title, body string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "getting post for update")
	}

	if err := auth.RequireOwnership(actor, post.AuthorID); err != nil {
		s.logger.Warn("post update refused",
			slog.Int64("postID", id),
			slog.Int64("authorID", post.AuthorID),
		)
		return nil, err
	}

	title, body, err = validatePostFields(title, body)
	if err != nil {
		return nil, err
	}

	post.Title = title
	post.Body = body

	if err := s.posts.Update(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			slog.Int64("postID", id),
			slog.String("error", err.Error()),
		)
		return nil, wrapStore(err, "updating post")
	}

	s.logger.Info("post updated",
		slog.Int64("postID", post.ID),
		slog.Int64("actorID", actor.ID),
	)

	return post, nil
}

// Delete removes a post on behalf of actor. Same fetch-guard-write shape as
// Update; a second delete of the same id fails at the fetch with NotFound.
func (s *PostService) Delete(ctx context.Context, actor *model.User, id int64) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return wrapStore(err, "getting post for delete")
	}

	if err := auth.RequireOwnership(actor, post.AuthorID); err != nil {
		s.logger.Warn("post delete refused",
			slog.Int64("postID", id),
			slog.Int64("authorID", post.AuthorID),
		)
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete post",
			slog.Int64("postID", id),
			slog.String("error", err.Error()),
		)
		return wrapStore(err, "deleting post")
	}

	s.logger.Info("post deleted",
		slog.Int64("postID", id),
		slog.Int64("actorID", actor.ID),
	)

	return nil
}

// validatePostFields trims and validates a title/body pair.
func validatePostFields(title, body string) (string, string, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	if title == "" {
		return "", "", apperror.ValidationFailed("title", "title is required")
	}
	if body == "" {
		return "", "", apperror.ValidationFailed("body", "body is required")
	}

	return title, body, nil
}
