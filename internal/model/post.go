package model

import "time"

// Post represents a blog post.
//
// AuthorID references the owning user and is set once at creation, never
// reassigned. Only the author may update title/body or delete the post —
// that rule is enforced in the service layer, not here.
//
// AuthorName is denormalized from the users table by the repository's JOIN
// so list/detail views can show a byline without a second query. It is not a
// column on the posts table.
type Post struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Title      string    `json:"title"`
	Body       string    `json:"body"` // markdown source, rendered at view time
	CreatedAt  time.Time `json:"createdAt"`
}
