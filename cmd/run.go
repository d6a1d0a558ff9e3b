package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seekerlab/datescout/internal/clock/system"
	"github.com/seekerlab/datescout/internal/config"
	"github.com/seekerlab/datescout/internal/input"
	"github.com/seekerlab/datescout/internal/logging"
	"github.com/seekerlab/datescout/internal/proxy"
	"github.com/seekerlab/datescout/internal/scraper"
	"github.com/seekerlab/datescout/internal/session"
	"github.com/seekerlab/datescout/internal/store"
	"github.com/seekerlab/datescout/internal/store/sqlite"
	"github.com/seekerlab/datescout/internal/store/tsv"
)

func newRunCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the input URL list",
		Long: `Launches one headless browser session and processes every pending URL
strictly sequentially: query, classify, extract, record, wait. URLs already
present in the output store are skipped, so an interrupted run can simply be
started again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if inputPath != "" {
				cfg.Input.Path = inputPath
			}
			if outputPath != "" {
				cfg.Output.Path = outputPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runScrape(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "input TSV of url_id<TAB>url rows (overrides config)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output store path (overrides config)")
	return cmd
}

func runScrape(parent context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	targets, err := input.ReadTargets(cfg.Input.Path)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("store close failed", zap.Error(cerr))
		}
	}()

	pauser := scraper.TimerPauser{}

	// A broken proxy configuration degrades to a direct connection rather
	// than aborting; the run is resumable either way.
	var proxyCfg *proxy.Config
	if cfg.Proxy.ConfigFile != "" {
		proxyCfg, err = proxy.LoadConfig(cfg.Proxy.ConfigFile)
		if err != nil {
			logger.Warn("proxy disabled", zap.Error(err))
			proxyCfg = nil
		}
	}
	var rotator *proxy.Rotator
	if proxyCfg != nil {
		rotator, err = proxy.NewRotator(proxyCfg, cfg.RotateSettle(), pauser, logger)
		if err != nil {
			return fmt.Errorf("init proxy rotator: %w", err)
		}
	}

	sess, err := session.New(session.Config{
		HomeURL:        cfg.Browser.HomeURL,
		Headless:       cfg.Browser.Headless,
		NavTimeout:     cfg.NavTimeout(),
		ConsentTimeout: cfg.ConsentTimeout(),
		KeyDelay:       cfg.KeyDelay(),
		Proxy:          proxyCfg,
	}, logger)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	if cfg.Metrics.ListenAddr != "" {
		serveMetrics(cfg.Metrics.ListenAddr, logger)
	}

	orch := scraper.NewOrchestrator(
		scraper.Config{BlockCooldown: cfg.BlockCooldown()},
		sess,
		st,
		scraper.NewClassifier(),
		rotator,
		scraper.NewPace(cfg.Delay(proxyCfg != nil), pauser),
		pauser,
		system.New(),
		logger,
	)

	if err := orch.Run(ctx, targets); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run scraper: %w", err)
	}
	return nil
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Output.Backend {
	case "sqlite":
		return sqlite.New(cfg.Output.Path)
	default:
		return tsv.New(cfg.Output.Path)
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener stopped", zap.Error(err))
		}
	}()
}
