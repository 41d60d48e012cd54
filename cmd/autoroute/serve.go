package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/autoroute/internal/config"
	"github.com/vango-dev/autoroute/internal/errors"
	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/inspect"
	"github.com/vango-dev/autoroute/pkg/middleware"
	"github.com/vango-dev/autoroute/pkg/routers"
	"github.com/vango-dev/autoroute/pkg/upload"
)

// uploadMaxAge is how long unclaimed uploads are kept.
const uploadMaxAge = time.Hour

func serveCmd(pf *projectFlags) *cobra.Command {
	var (
		addr       string
		routerName string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the controllers over HTTP",
		Long: `Build the route table and serve it until interrupted.

Plugin controllers (.so) are served directly. Go source controllers answer
501 Not Implemented; compile them into your own binary with 'autoroute gen'.

Examples:
  autoroute serve
  autoroute serve --addr=:8080 --router=httprouter`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(pf)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if routerName != "" {
				cfg.Server.Router = routerName
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newLogger(cfg, os.Stderr))
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVarP(&routerName, "router", "r", "", "Router backend: chi, mux, httprouter, gin or servemux")

	return cmd
}

// app is the HTTP side of `autoroute serve`.
type app struct {
	handler http.Handler
	hub     *inspect.Hub
	uploads upload.Store
	routes  int
}

func (a *app) close() {
	if a.hub != nil {
		a.hub.Close()
	}
}

// newApp builds the controllers router and mounts it, with the metrics and
// inspector endpoints, behind the chi middleware stack.
func newApp(cfg *config.Config, logger *slog.Logger, registry *prometheus.Registry) (*app, error) {
	factory, err := routers.ByName(cfg.Server.Router)
	if err != nil {
		return nil, errors.New("A302").Wrap(err)
	}
	actions, err := cfg.ActionsMap()
	if err != nil {
		return nil, errors.New("A208").Wrap(err)
	}

	a := &app{}
	opts := append(discoveryOptions(cfg, logger),
		autoroute.WithLoader(projectLoader(actions)),
		autoroute.WithUploadField(cfg.Upload.Field),
		autoroute.WithMaxBodySize(cfg.MaxBodySizeBytes()),
	)

	errorHandler := autoroute.DefaultErrorHandler(logger)

	if cfg.Tracing.Enabled {
		var otelOpts []middleware.OTelOption
		if cfg.Tracing.TracerName != "" {
			otelOpts = append(otelOpts, middleware.WithTracerName(cfg.Tracing.TracerName))
		}
		opts = append(opts, autoroute.WithInstrument(middleware.OpenTelemetry(otelOpts...)))
		errorHandler = middleware.TraceErrors(errorHandler)
	}

	if cfg.Metrics.Enabled {
		metricsOpts := []middleware.MetricsOption{middleware.WithRegistry(registry)}
		if cfg.Metrics.Namespace != "" {
			metricsOpts = append(metricsOpts, middleware.WithNamespace(cfg.Metrics.Namespace))
		}
		opts = append(opts, middleware.NewMetrics(metricsOpts...).Options(errorHandler)...)
	} else {
		opts = append(opts, autoroute.WithErrorHandler(errorHandler))
	}

	if cfg.Inspect.Enabled {
		a.hub = inspect.NewHub(inspect.Config{Logger: logger})
		opts = append(opts,
			autoroute.WithOnRequest(a.hub.OnRequest),
			autoroute.WithOnResponse(a.hub.OnResponse),
		)
	}

	if cfg.Upload.Store != "" {
		a.uploads, err = newUploadStore(cfg)
		if err != nil {
			return nil, errors.New("A303").Wrap(err)
		}
		opts = append(opts, autoroute.WithUploadStore(a.uploads))
	}

	ar := autoroute.New(factory, actions, opts...)
	built, err := ar.Build(cfg.ControllersPath(), cfg.Meta...)
	if err != nil {
		a.close()
		return nil, errors.Classify(err, "A202")
	}
	if lister, ok := built.(autoroute.RouteLister); ok {
		a.routes = len(lister.Routes())
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	if a.hub != nil {
		r.Handle(cfg.Inspect.Path, a.hub)
	}
	r.NotFound(detach(built))

	a.handler = r
	return a, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, logger, registry)
	if err != nil {
		return err
	}
	defer a.close()

	if a.uploads != nil {
		go cleanupUploads(ctx, a.uploads, logger)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"address", cfg.Server.Addr,
			"router", cfg.Server.Router,
			"routes", a.routes,
			"controllers", cfg.ControllersPath())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return errors.New("A301").Wrap(err)
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()

	a.close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return errors.New("A304").Wrap(err)
	}

	logger.Info("server shutdown complete")
	return nil
}

// detach hands r to h without the outer chi routing context, so a chi
// backend routes the request from scratch.
func detach(h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), chi.RouteCtxKey, nil)
		h.ServeHTTP(w, r.WithContext(ctx))
	}
}

// requestLogger logs one line per request at info level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()))
		})
	}
}

func newUploadStore(cfg *config.Config) (upload.Store, error) {
	switch cfg.Upload.Store {
	case "disk":
		return upload.NewDiskStore(cfg.UploadPath(), cfg.MaxBodySizeBytes())
	case "s3":
		return upload.NewS3Store(newS3Client(cfg), cfg.Upload.Bucket, cfg.Upload.Prefix, cfg.MaxBodySizeBytes()), nil
	}
	return nil, errors.Newf(errors.CategoryConfig, "unknown upload store %q", cfg.Upload.Store)
}

// newS3Client builds a client from the upload config and the standard
// AWS_* environment variables.
func newS3Client(cfg *config.Config) *s3.Client {
	region := cfg.Upload.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})

	return s3.New(s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(creds),
		UsePathStyle: cfg.Upload.Endpoint != "",
	}, func(o *s3.Options) {
		if cfg.Upload.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Upload.Endpoint)
		}
	})
}

func cleanupUploads(ctx context.Context, store upload.Store, logger *slog.Logger) {
	ticker := time.NewTicker(uploadMaxAge / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, uploadMaxAge); err != nil {
				logger.Warn("upload cleanup failed", "error", err)
			}
		}
	}
}
