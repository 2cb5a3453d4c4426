package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/service"
)

// BlogHandler serves the post pages: the paginated index, single-post view,
// and the create/update/delete routes.
type BlogHandler struct {
	posts    *service.PostService
	render   *Renderer
	flash    *FlashStore
	pageSize int
	logger   *slog.Logger
}

// NewBlogHandler creates a BlogHandler.
func NewBlogHandler(
	posts *service.PostService,
	render *Renderer,
	flash *FlashStore,
	pageSize int,
	logger *slog.Logger,
) *BlogHandler {
	return &BlogHandler{
		posts:    posts,
		render:   render,
		flash:    flash,
		pageSize: pageSize,
		logger:   logger,
	}
}

// HandleIndex shows the paginated list of posts, newest first.
//
// HTTP: GET /?page=N
//
// An unparseable or missing page parameter reads as page 1; out-of-range
// values are clamped by the service, so the handler never 404s on a bad
// page number.
func (h *BlogHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}

	result, err := h.posts.List(r.Context(), page, h.pageSize)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.render.Render(w, r, "index", http.StatusOK, map[string]any{
		"Posts":      result.Posts,
		"Page":       result.Page,
		"TotalPages": result.TotalPages,
	})
}

// HandleShow displays a single post.
//
// HTTP: GET /{id}
func (h *BlogHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.render.Render(w, r, "post", http.StatusOK, map[string]any{
		"Post": post,
	})
}

// HandleCreateForm shows the new-post form to a logged-in user.
//
// HTTP: GET /create
func (h *BlogHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAuthenticated(r.Context()); err != nil {
		h.render.RenderError(w, r, err)
		return
	}
	h.render.Render(w, r, "create", http.StatusOK, map[string]any{
		"Title": "",
		"Body":  "",
	})
}

// HandleCreate processes a new-post submission.
//
// HTTP: POST /create
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	title := r.PostFormValue("title")
	body := r.PostFormValue("body")

	if _, err := h.posts.Create(r.Context(), user.ID, title, body); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			// Re-render with the submitted values so nothing typed is lost.
			h.flash.Add(w, r, FlashError, apperror.Message(err))
			h.render.Render(w, r, "create", http.StatusUnprocessableEntity, map[string]any{
				"Title": title,
				"Body":  body,
			})
			return
		}
		h.render.RenderError(w, r, err)
		return
	}

	h.flash.Add(w, r, FlashSuccess, "Post created successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleUpdateForm shows the edit form, pre-filled with the stored post.
//
// HTTP: GET /{id}/update
//
// The ownership guard runs here too — a non-author shouldn't see an edit
// form they can only submit into a 403.
func (h *BlogHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	id, err := postID(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	if err := auth.RequireOwnership(user, post.AuthorID); err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.render.Render(w, r, "update", http.StatusOK, map[string]any{
		"Post":  post,
		"Title": post.Title,
		"Body":  post.Body,
	})
}

// HandleUpdate processes an edit submission. The service re-runs the
// ownership check against the stored author before writing.
//
// HTTP: POST /{id}/update
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	id, err := postID(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	title := r.PostFormValue("title")
	body := r.PostFormValue("body")

	if _, err := h.posts.Update(r.Context(), user, id, title, body); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.flash.Add(w, r, FlashError, apperror.Message(err))
			h.render.Render(w, r, "update", http.StatusUnprocessableEntity, map[string]any{
				"Post":  map[string]any{"ID": id},
				"Title": title,
				"Body":  body,
			})
			return
		}
		h.render.RenderError(w, r, err)
		return
	}

	h.flash.Add(w, r, FlashSuccess, "Post updated successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDelete removes a post. Deletion is immediate and unrecoverable;
// the confirmation lives in the edit form's submit button.
//
// HTTP: POST /{id}/delete
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	id, err := postID(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	if err := h.posts.Delete(r.Context(), user, id); err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.flash.Add(w, r, FlashInfo, "Post deleted successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// postID extracts the {id} path parameter. Anything non-numeric reads as a
// post that doesn't exist.
func postID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "no such post",
		}
	}
	return id, nil
}
