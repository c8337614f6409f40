package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/http/api"
	"github.com/arenalabs/motionduel/internal/adapters/telemetry"
	app "github.com/arenalabs/motionduel/internal/app"
	"github.com/arenalabs/motionduel/internal/app/orchestrator"
	"github.com/arenalabs/motionduel/internal/config"
	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

const releaseVersion = "1.0.0"

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// flags override the layered configuration when set on the command line.
type flags struct {
	addr     string
	logLevel string
}

func main() {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "motionduel",
		Short:         "Orchestrates live motion-game matches between IoT wristbands.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&f.addr, "addr", "a", "", "HTTP listen address (overrides MOTIONDUEL_ADDR)")
	fs.StringVarP(&f.logLevel, "log-level", "l", "", "log verbosity (overrides MOTIONDUEL_LOG_LEVEL)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	if err := logger.Init(); err != nil {
		return err
	}
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.TelemetryTimeoutMS) * time.Millisecond}

	scores := telemetry.NewClient(cfg.BandAPIBaseURL,
		telemetry.WithHTTPClient(httpClient),
		telemetry.WithServiceHeaders(cfg.FiwareService, cfg.FiwareServicePath),
		telemetry.WithMultiplier(cfg.PointsMultiplier),
	)
	bands := bandctl.NewClient(cfg.BandAPIBaseURL, cfg.DeviceAPIBaseURL,
		bandctl.WithHTTPClient(httpClient),
		bandctl.WithServiceHeaders(cfg.FiwareService, cfg.FiwareServicePath),
	)

	timing := orchestrator.DefaultTiming()
	timing.IntroDwell = time.Duration(cfg.IntroDwellMS) * time.Millisecond
	timing.CountdownTicks = cfg.CountdownTicks
	timing.CountdownTick = time.Duration(cfg.CountdownTickMS) * time.Millisecond
	timing.RoundCheck = time.Duration(cfg.RoundCheckMS) * time.Millisecond
	timing.LiveTick = time.Duration(cfg.LiveTickMS) * time.Millisecond
	timing.SettleDelay = time.Duration(cfg.SettleDelayMS) * time.Millisecond
	timing.InterRoundDelay = time.Duration(cfg.InterRoundDelayMS) * time.Millisecond
	timing.LeaderboardReveal = time.Duration(cfg.LeaderboardRevealMS) * time.Millisecond

	svc := app.New(
		app.WithLogger(log),
		app.WithTelemetry(scores),
		app.WithBandControl(bands),
		app.WithDeviceRegistry(bands),
		app.WithTiming(timing),
		app.WithFreeplayTick(time.Duration(cfg.FreeplayTickMS)*time.Millisecond),
	)
	return serve(ctx, cfg, svc, log)
}

func serve(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) error {
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	apiServer := api.NewServer(svc,
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		api.WithDisplayURL(cfg.DisplayURL),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", apiServer.Router())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}
