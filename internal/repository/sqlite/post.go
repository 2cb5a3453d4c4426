package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// compile-time check that *PostRepo implements repository.PostRepository
var _ repository.PostRepository = (*PostRepo)(nil)

// PostRepo implements repository.PostRepository on the posts table. Obtain
// one from DB.Posts.
type PostRepo struct {
	conn *sql.DB
}

// Posts returns the post repository backed by this database.
func (db *DB) Posts() *PostRepo {
	return &PostRepo{conn: db.conn}
}

// Create inserts a new post and fills in the store-assigned ID and creation
// timestamp. AuthorID must reference an existing user — the foreign key
// rejects anything else.
func (r *PostRepo) Create(ctx context.Context, post *model.Post) error {
	post.CreatedAt = time.Now()

	res, err := r.conn.ExecContext(ctx,
		`INSERT INTO posts (author_id, title, body, created_at)
		 VALUES (?, ?, ?, ?)`,
		post.AuthorID,
		post.Title,
		post.Body,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new post id: %w", err)
	}
	post.ID = id

	return nil
}

// GetByID retrieves a single post, joined with users so the author's
// username comes back in the same query.
func (r *PostRepo) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post

	err := r.conn.QueryRowContext(ctx,
		`SELECT p.id, p.author_id, u.username, p.title, p.body, p.created_at
		 FROM posts p JOIN users u ON p.author_id = u.id
		 WHERE p.id = ?`,
		id,
	).Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}

	return &p, nil
}

// List retrieves a page of posts, newest first.
//
// The secondary ORDER BY on id makes the ordering deterministic when two
// posts share a created_at second: the later insert (higher id) sorts first.
func (r *PostRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryContext(ctx,
		`SELECT p.id, p.author_id, u.username, p.title, p.body, p.created_at
		 FROM posts p JOIN users u ON p.author_id = u.id
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// Count returns the total number of posts, used to compute page counts.
func (r *PostRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM posts`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// Update rewrites a post's title and body. author_id and created_at are
// immutable and deliberately absent from the SET list. Ownership has
// already been checked by the caller — this is a plain row update.
func (r *PostRepo) Update(ctx context.Context, post *model.Post) error {
	result, err := r.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ? WHERE id = ?`,
		post.Title,
		post.Body,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %d: %w", post.ID, err)
	}

	// Zero affected rows means the WHERE clause matched nothing.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// Delete removes a post row. Same RowsAffected pattern as Update — deleting
// a post that is already gone reports NotFound.
func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}
