package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tasku/tasku/internal/common"
	"github.com/tasku/tasku/internal/config"
	"github.com/tasku/tasku/internal/http/v1/routes"
	"github.com/tasku/tasku/internal/http/web"
	"github.com/tasku/tasku/internal/metrics"
	appmiddleware "github.com/tasku/tasku/internal/middleware"
	"github.com/tasku/tasku/internal/respond"
	"github.com/tasku/tasku/internal/view/welcome"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	if err := common.Err(); err != nil {
		appmiddleware.LogError(context.Background(), "logger init error", err)
	}
	err := newRootCmd().ExecuteContext(context.Background())
	if syncErr := common.Sync(); syncErr != nil {
		appmiddleware.LogError(context.Background(), "logger sync error", syncErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tasku",
		Short:         "Tasku web server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runServer(cmd)
			if err != nil {
				appmiddleware.LogError(cmd.Context(), "server failed", err)
			}
			return err
		},
	}
	config.RegisterFlags(root.Flags())
	root.AddCommand(newRenderCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	var fragment bool
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the welcome page to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fragment {
				return welcome.Render(cmd.OutOrStdout())
			}
			return welcome.RenderPage(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&fragment, "fragment", false, "write only the view, without the HTML document")
	return cmd
}

func runServer(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := common.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, ln, newRouter(cfg, m), cfg.ShutdownTimeout)
}

// newRouter assembles the middleware stack, the huma API and the plain chi routes.
func newRouter(cfg config.Config, m *metrics.Metrics) http.Handler {
	respond.Install()

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		m.Middleware(),
		appmiddleware.Security(cfg.DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP trusts X-Real-IP / X-Forwarded-For; only deploy behind a trusted proxy.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20), // 1 MB
		appmiddleware.RequestLogger(),
		appmiddleware.AccessLogger(),
		respond.Recoverer(),
		// HEAD falls through to the GET route when none is registered.
		chimiddleware.GetHead,
	)

	humaCfg := huma.DefaultConfig("Tasku API", Version)
	humaCfg.DocsPath = cfg.DocsPath
	api := humachi.New(router, humaCfg)

	// Advertise CBOR wherever JSON is accepted or produced.
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			if op.RequestBody != nil && op.RequestBody.Content != nil {
				if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
					op.RequestBody.Content["application/cbor"] = jsonContent
				}
			}
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)

	routes.Register(api)
	web.Register(router, m)
	router.Method(http.MethodGet, "/metrics", m.Handler())

	return router
}

// serve runs the HTTP server on ln until ctx is cancelled, then shuts it down
// gracefully within timeout, force-closing connections that outlive it. It
// returns only after the serving goroutine exits.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, timeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		appmiddleware.LogInfo(ctx, "server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		appmiddleware.LogInfo(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		<-serveErr
		return fmt.Errorf("shutdown: %w", err)
	}
	<-serveErr
	appmiddleware.LogInfo(context.Background(), "server exited")
	return nil
}
