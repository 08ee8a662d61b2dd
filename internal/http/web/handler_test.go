package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/tasku/tasku/internal/view/welcome"
)

type recordedRender struct {
	view string
	err  error
}

type fakeRecorder struct {
	mu      sync.Mutex
	renders []recordedRender
}

func (f *fakeRecorder) RecordRender(view string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, recordedRender{view: view, err: err})
}

func newTestRouter(rec RenderRecorder) chi.Router {
	router := chi.NewRouter()
	Register(router, rec)
	return router
}

func countClass(n *html.Node, class string) int {
	count := 0
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "class" && a.Val == class {
				count++
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countClass(c, class)
	}
	return count
}

func TestWelcomePage(t *testing.T) {
	rec := &fakeRecorder{}
	resp := httptest.NewRecorder()
	newTestRouter(rec).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("expected text/html; charset=utf-8, got %s", ct)
	}
	body := resp.Body.String()
	if !strings.Contains(body, welcome.Markup()) {
		t.Fatal("page does not contain the welcome view")
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	for _, class := range []string{"container", "title", "subtitle", "emoji"} {
		if n := countClass(doc, class); n != 1 {
			t.Errorf("expected one .%s, got %d", class, n)
		}
	}

	if len(rec.renders) != 1 || rec.renders[0].view != "welcome" || rec.renders[0].err != nil {
		t.Errorf("unexpected recorded renders %+v", rec.renders)
	}
}

func TestWelcomePageIsStable(t *testing.T) {
	router := newTestRouter(nil)

	var bodies [2]string
	for i := range bodies {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
		bodies[i] = resp.Body.String()
	}
	if bodies[0] != bodies[1] {
		t.Fatal("expected byte-identical pages across requests")
	}
}

func TestWelcomePageHead(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodHead, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty body for HEAD, got %d bytes", resp.Body.Len())
	}
	if resp.Header().Get("Content-Length") == "" {
		t.Error("expected Content-Length on HEAD")
	}
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

var errClosed = errors.New("connection closed")

func (f failingWriter) Write([]byte) (int, error) { return 0, errClosed }

func TestWelcomePageWriteFailureIsLogged(t *testing.T) {
	w := failingWriter{httptest.NewRecorder()}
	Handler(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status to be committed before the write, got %d", w.Code)
	}
}
