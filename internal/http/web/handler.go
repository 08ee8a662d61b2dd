// Package web serves the HTML welcome page.
package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appmiddleware "github.com/tasku/tasku/internal/middleware"
	"github.com/tasku/tasku/internal/respond"
	"github.com/tasku/tasku/internal/view/welcome"
)

const viewWelcome = "welcome"

// RenderRecorder observes view renders. *metrics.Metrics satisfies it.
type RenderRecorder interface {
	RecordRender(view string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordRender(string, time.Duration, error) {}

// Register mounts the welcome page on GET and HEAD /.
func Register(r chi.Router, rec RenderRecorder) {
	h := Handler(rec)
	r.Get("/", h)
	r.Head("/", h)
}

// Handler renders the welcome page. The page is buffered so a render failure
// can still be answered with a clean 500.
func Handler(rec RenderRecorder) http.HandlerFunc {
	if rec == nil {
		rec = nopRecorder{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		start := time.Now()
		err := welcome.RenderPage(&buf)
		rec.RecordRender(viewWelcome, time.Since(start), err)
		if err != nil {
			respond.Problem(w, r, http.StatusInternalServerError, "internal server error", err)
			return
		}

		appmiddleware.LogInfo(r.Context(), "welcome page")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			appmiddleware.LogError(r.Context(), "write welcome page", err)
		}
	}
}
