package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/caza2026/panel/cmd/panel/cli"
	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/app"
	"github.com/caza2026/panel/internal/auth"
	"github.com/caza2026/panel/internal/dashboard"
	"github.com/caza2026/panel/internal/gate"
	jobmetrics "github.com/caza2026/panel/internal/jobs"
	"github.com/caza2026/panel/internal/observability"
	"github.com/caza2026/panel/internal/platform/cache"
	"github.com/caza2026/panel/internal/records"
	"github.com/caza2026/panel/internal/shared"
	"github.com/caza2026/panel/internal/stats"
	"github.com/caza2026/panel/internal/view"
	"github.com/caza2026/panel/internal/workspace"
	"github.com/caza2026/panel/jobs"
)

const usage = `usage: panel [command]

commands:
  serve                   run the web panel (default)
  hash-operator -user U   print an OPERATORS entry; the password is read from stdin
  jobs trigger NAME       enqueue a job by task name (stats:warmup)
  jobs queue              print default queue counters
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Error("load env", slog.Any("error", err))
		os.Exit(1)
	}

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "hash-operator":
		err = hashOperator(args)
	case "jobs":
		err = jobsCommand(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Default().Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	operators, err := gate.ParseOperators(cfg.Operators)
	if err != nil {
		return err
	}
	verifier, err := gate.NewBcryptVerifier(operators)
	if err != nil {
		return err
	}
	if verifier.Operators() == 0 {
		logger.Warn("no operators configured, every login will be rejected")
	}

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Warn("redis unavailable at startup", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "panel_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := observability.NewMetrics()
	apiClient := api.NewClient(cfg.APIBaseURL, cfg.APITimeout)

	statsService := stats.NewService(apiClient, stats.NewCache(redisClient, cfg.StatsCacheTTL), logger)

	jobsClient, err := jobs.NewClient(redisOpts.Asynq(), jobmetrics.NewMetrics(metrics.Registerer()))
	if err != nil {
		return fmt.Errorf("init jobs client: %w", err)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	registry := workspace.NewRegistry(workspace.Config{
		Deps: records.Deps{
			Client:   apiClient,
			Views:    jobsClient,
			Logger:   logger,
			Recorder: metrics,
		},
		Stats:           statsService,
		RefreshInterval: cfg.StatsRefreshInterval,
		IdleTTL:         cfg.WorkspaceIdleTTL,
		Logger:          logger,
	})
	sweeper := workspace.NewSweeper(registry, logger, cfg.WorkspaceSweepInterval)
	sweeper.Start()

	loading := auth.LoadingPage(templates, logger)
	guard := gate.NewGuard(gate.GuardConfig{
		Verifier: verifier,
		Duration: cfg.SessionDuration,
		Logger:   logger,
		Loading:  loading,
		Teardown: func(sessionID string) {
			if registry.Close(sessionID) {
				metrics.SetWorkspaces(registry.Len())
			}
		},
	})

	inspector := asynq.NewInspector(redisOpts.Asynq())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guard:          guard,
		Loading:        loading,
		AuthHandler:    auth.NewHandler(logger, guard, templates, sessionManager, csrfManager, cfg.LoginRateLimit),
		DashboardHandler: dashboard.NewHandler(dashboard.Config{
			Logger:     logger,
			Templates:  templates,
			CSRF:       csrfManager,
			Workspaces: registry,
			Backend:    apiClient,
			Stats:      statsService,
			Warmup:     jobsClient,
			Gauge:      metrics,
		}),
		JobHandler: jobs.NewHandler(inspector, logger),
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", apiClient.BaseURL()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	sweeper.Stop()
	registry.CloseAll()
	return nil
}

func hashOperator(args []string) error {
	fs := flag.NewFlagSet("hash-operator", flag.ContinueOnError)
	user := fs.String("user", "", "operator name")
	cost := fs.Int("cost", 0, "bcrypt cost (default 10)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	entry, err := cli.HashOperator(*user, strings.TrimRight(line, "\r\n"), *cost)
	if err != nil {
		return err
	}
	fmt.Println(entry)
	return nil
}

func jobsCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("jobs: expected trigger or queue")
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c := cli.NewJobsCLI(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}.Asynq())
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: missing task name")
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "queue":
		st, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			st.Queue, st.Pending, st.Active, st.Scheduled, st.Retry, st.Archived)
		archived, err := c.ListArchived(ctx, 10)
		if err != nil {
			return err
		}
		for _, t := range archived {
			fmt.Printf("  archived %s id=%s last_err=%q\n", t.Type, t.ID, t.LastErr)
		}
	default:
		return fmt.Errorf("jobs: unknown subcommand %q", args[0])
	}
	return nil
}
