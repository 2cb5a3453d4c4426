package handler

import (
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
)

// Flash categories. Templates use the category as a CSS class.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

const flashCookie = "flash"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Message  string
	Category string
}

// FlashStore carries flash messages across a redirect in a signed cookie.
//
// WHY SIGNED?
// The category and message come back from the client on the next request.
// Signing (securecookie with a hash key, no encryption — there's nothing
// secret in a flash) stops anyone from minting their own "success" banners
// or stuffing markup into the cookie.
type FlashStore struct {
	codec  *securecookie.SecureCookie
	logger *slog.Logger
}

// NewFlashStore derives the cookie-signing key from the application secret,
// so one SECRET_KEY configures both sessions and flashes.
func NewFlashStore(secret string, logger *slog.Logger) *FlashStore {
	hashKey := sha256.Sum256([]byte("flash:" + secret))
	return &FlashStore{
		codec:  securecookie.New(hashKey[:], nil),
		logger: logger,
	}
}

// Add appends a flash message, preserving any messages already queued on
// this request (e.g. a warning followed by a redirect that adds its own).
func (f *FlashStore) Add(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := append(f.peek(r), f.takePending(w)...)
	flashes = append(flashes, Flash{Message: message, Category: category})

	encoded, err := f.codec.Encode(flashCookie, flashes)
	if err != nil {
		// A flash is cosmetic — log and move on rather than failing the request.
		f.logger.Error("failed to encode flash cookie", slog.String("error", err.Error()))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   300, // flashes that are never rendered shouldn't live forever
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns all pending flashes and clears the cookie. Called exactly
// once per rendered page.
//
// Flashes added earlier in the SAME request (a validation failure that
// re-renders the form instead of redirecting) live in the response headers,
// not the request cookie, so both sides are drained here.
func (f *FlashStore) Pop(w http.ResponseWriter, r *http.Request) []Flash {
	fromRequest := f.peek(r)
	flashes := append(fromRequest, f.takePending(w)...)
	if len(flashes) == 0 {
		return nil
	}

	if fromRequest != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return flashes
}

// takePending decodes flashes already written to the response in this
// request and strips their Set-Cookie headers, so the caller can either
// display them now or rewrite the cookie with more appended.
func (f *FlashStore) takePending(w http.ResponseWriter) []Flash {
	lines := w.Header().Values("Set-Cookie")
	if len(lines) == 0 {
		return nil
	}

	var flashes []Flash
	kept := lines[:0]
	for _, line := range lines {
		parsed := (&http.Response{Header: http.Header{"Set-Cookie": []string{line}}}).Cookies()
		if len(parsed) == 0 || parsed[0].Name != flashCookie {
			kept = append(kept, line)
			continue
		}
		if c := parsed[0]; c.Value != "" {
			var pending []Flash
			if err := f.codec.Decode(flashCookie, c.Value, &pending); err == nil {
				flashes = append(flashes, pending...)
			}
		}
	}
	w.Header()["Set-Cookie"] = kept

	return flashes
}

// peek decodes the flash cookie without clearing it. A missing or
// tampered cookie reads as "no flashes".
func (f *FlashStore) peek(r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	var flashes []Flash
	if err := f.codec.Decode(flashCookie, cookie.Value, &flashes); err != nil {
		return nil
	}
	return flashes
}
