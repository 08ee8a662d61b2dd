package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/negotiation"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appmiddleware "github.com/tasku/tasku/internal/middleware"
)

// Problem document media types.
const (
	ContentTypeProblemJSON = "application/problem+json"
	ContentTypeProblemCBOR = "application/problem+cbor"

	msgNotFound         = "resource not found"
	msgMethodNotAllowed = "method not allowed"
	msgInternalError    = "internal server error"
)

var installOnce sync.Once

// problemDocument is huma.ErrorModel plus the request correlation id as an
// RFC 9457 extension member.
type problemDocument struct {
	huma.ErrorModel
	TraceID string `json:"traceId,omitempty" cbor:"traceId,omitempty"`
}

// Install logs the errors huma builds with a request context (validation,
// body and negotiation failures) through the request-aware logger. The
// huma.Error* helpers go through huma.NewError and are not covered.
func Install() {
	installOnce.Do(func() {
		base := huma.NewErrorWithContext
		huma.NewErrorWithContext = func(hctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			ctx := context.Background()
			if hctx != nil {
				ctx = hctx.Context()
			}
			logWithStatus(ctx, status, msg, errors.Join(errs...))
			return base(hctx, status, msg, errs...)
		}
	})
}

// Problem writes an RFC 9457 problem document for requests that never reach
// huma (unknown routes, panics, plain chi handlers). The body is CBOR when the
// client prefers application/cbor and JSON otherwise.
func Problem(w http.ResponseWriter, r *http.Request, status int, detail string, errs ...error) {
	ctx := r.Context()
	logWithStatus(ctx, status, detail, errors.Join(errs...))

	model := &problemDocument{
		ErrorModel: huma.ErrorModel{
			Title:    http.StatusText(status),
			Status:   status,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		TraceID: appmiddleware.TraceIDFromContext(ctx),
	}

	var (
		body []byte
		err  error
	)
	switch negotiation.SelectQValueFast(r.Header.Get("Accept"), []string{"application/json", "application/cbor"}) {
	case "application/cbor":
		w.Header().Set("Content-Type", ContentTypeProblemCBOR)
		body, err = cbor.Marshal(model)
	default:
		w.Header().Set("Content-Type", ContentTypeProblemJSON)
		body, err = json.Marshal(model)
	}
	if err != nil {
		appmiddleware.LogError(ctx, "encode problem", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
		return
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		appmiddleware.LogError(ctx, "write problem", err)
	}
}

// NotFoundHandler answers unknown routes with a 404 problem.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Problem(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler answers with a 405 problem and an Allow header listing
// the methods the matched route does support.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		Problem(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// Recoverer converts panics into 500 problems. http.ErrAbortHandler is re-raised
// so net/http can abort the connection as intended.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				Problem(w, r, http.StatusInternalServerError, msgInternalError,
					fmt.Errorf("panic: %w\n%s", err, debug.Stack()))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// allowedMethods probes chi's routing tree for the methods registered on the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}
	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	// The router answers HEAD on every GET route.
	if slices.Contains(allowed, http.MethodGet) && !slices.Contains(allowed, http.MethodHead) {
		allowed = slices.Insert(allowed, 1, http.MethodHead)
	}
	return allowed
}

func logWithStatus(ctx context.Context, status int, msg string, err error) {
	if msg == "" {
		msg = "request failed"
	}
	fields := []zap.Field{zap.Int("status", status)}
	switch {
	case status >= http.StatusInternalServerError:
		appmiddleware.LogError(ctx, msg, err, fields...)
	case status >= http.StatusBadRequest:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		appmiddleware.LogWarn(ctx, msg, fields...)
	default:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		appmiddleware.LogInfo(ctx, msg, fields...)
	}
}
