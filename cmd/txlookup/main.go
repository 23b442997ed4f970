package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/enricher"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/lookup"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/progress/clickhouse"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/progress/csvstore"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/records"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/retry"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/throttle"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	storeCSV        = "csv"
	storeClickhouse = "clickhouse"
)

type config struct {
	InputCSV        string        `long:"input-csv" env:"TXLOOKUP_INPUT_CSV" description:"CSV file listing transaction ids" required:"true"`
	TxIDColumn      string        `long:"txid-column" env:"TXLOOKUP_TXID_COLUMN" description:"input column holding transaction ids" default:"txid"`
	OutputCSV       string        `long:"output-csv" env:"TXLOOKUP_OUTPUT_CSV" description:"progress file for the csv store" default:"tx_block_info.csv"`
	MergedOutputCSV string        `long:"merged-output-csv" env:"TXLOOKUP_MERGED_OUTPUT_CSV" description:"optional copy of the input enriched with block info"`
	APISource       string        `long:"api-source" env:"TXLOOKUP_API_SOURCE" description:"lookup backend" default:"blockstream" choice:"blockstream" choice:"mempool" choice:"esplora" choice:"bitcoind"`
	APIURL          string        `long:"api-url" env:"TXLOOKUP_API_URL" description:"Esplora API base URL, required for the esplora backend"`
	RPCURL          string        `long:"rpc-url" env:"TXLOOKUP_RPC_URL" description:"bitcoind JSON-RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser         string        `long:"rpc-user" env:"TXLOOKUP_RPC_USER" description:"bitcoind RPC username"`
	RPCPassword     string        `long:"rpc-password" env:"TXLOOKUP_RPC_PASSWORD" description:"bitcoind RPC password"`
	RateLimit       float64       `long:"rate-limit-per-sec" env:"TXLOOKUP_RATE_LIMIT_PER_SEC" description:"max lookups per second, 0 disables the limit" default:"4"`
	CheckpointEvery int           `long:"checkpoint-every" env:"TXLOOKUP_CHECKPOINT_EVERY" description:"save progress after this many lookups" default:"100"`
	MaxRetries      int           `long:"max-retries" env:"TXLOOKUP_MAX_RETRIES" description:"retries for rate limited, server and network errors" default:"5"`
	BackoffBase     float64       `long:"backoff-base" env:"TXLOOKUP_BACKOFF_BASE" description:"base of the exponential retry pause, in seconds" default:"0.8"`
	MaxBackoff      time.Duration `long:"max-backoff" env:"TXLOOKUP_MAX_BACKOFF" description:"longest pause between retries" default:"30s"`
	HTTPTimeout     time.Duration `long:"http-timeout" env:"TXLOOKUP_HTTP_TIMEOUT" description:"timeout of a single lookup request" default:"15s"`
	Store           string        `long:"store" env:"TXLOOKUP_STORE" description:"progress store" default:"csv" choice:"csv" choice:"clickhouse"`
	ClickhouseDSN   string        `long:"clickhouse-dsn" env:"TXLOOKUP_CLICKHOUSE_DSN" description:"ClickHouse DSN for the clickhouse store"`
	MetricsAddr     string        `long:"metrics-addr" env:"TXLOOKUP_METRICS_ADDR" description:"address for the metrics server, empty disables it"`
	EnvFile         string        `long:"env-file" env:"TXLOOKUP_ENV_FILE" description:"dotenv file to load before reading the environment" default:".env"`
}

type envFileOption struct {
	EnvFile string `long:"env-file" env:"TXLOOKUP_ENV_FILE" default:".env"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := loadEnvFile(os.Args[1:]); err != nil {
		logger.Fatal("failed to load env file", zap.Error(err))
	}

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted, progress is saved and the next run resumes from it")
			_ = logger.Sync()
			os.Exit(130)
		}
		logger.Fatal("txlookup failed", zap.Error(err))
	}
}

// loadEnvFile reads --env-file ahead of the full flag parse so its values
// can satisfy env-backed flags. A missing default file is not an error.
func loadEnvFile(args []string) error {
	opt := envFileOption{}
	if _, err := flags.NewParser(&opt, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return fmt.Errorf("parse env file flag: %w", err)
	}
	if opt.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(opt.EnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) && opt.EnvFile == ".env" {
			return nil
		}
		return fmt.Errorf("load %s: %w", opt.EnvFile, err)
	}
	return nil
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	backend, err := model.ParseBackend(cfg.APISource)
	if err != nil {
		return err
	}
	engineCfg := enricher.Config{
		Backend:           backend,
		RequestsPerSecond: cfg.RateLimit,
		CheckpointEvery:   cfg.CheckpointEvery,
		MaxRetries:        cfg.MaxRetries,
		BackoffBase:       cfg.BackoffBase,
		MaxBackoff:        cfg.MaxBackoff,
		Timeout:           cfg.HTTPTimeout,
	}
	if err := engineCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	table, err := records.ReadTable(cfg.InputCSV)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	keys, err := table.Keys(cfg.TxIDColumn)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	logger.Info("input loaded",
		zap.String("path", cfg.InputCSV),
		zap.Int("rows", len(table.Rows)),
		zap.Int("unique_txids", len(keys)),
	)

	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr, logger)
	}

	store, closeStore, err := newProgressStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("init progress store: %w", err)
	}
	defer closeStore()

	client, err := lookup.New(backend, lookup.Options{
		BaseURL:     cfg.APIURL,
		RPCURL:      cfg.RPCURL,
		RPCUser:     cfg.RPCUser,
		RPCPassword: cfg.RPCPassword,
		Timeout:     cfg.HTTPTimeout,
		Metrics:     metrics.NewLookupClient(backend),
		Logger:      logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("init lookup client: %w", err)
	}

	svc, err := enricher.NewService(
		engineCfg,
		throttle.New(engineCfg.RequestsPerSecond),
		retry.NewPolicy(client, engineCfg.RetryConfig(), logger),
		store,
		metrics.NewEnricher(backend),
		logger,
	)
	if err != nil {
		return err
	}

	snapshot, err := svc.Run(ctx, keys)
	if err != nil {
		return err
	}
	logSummary(snapshot, logger)

	if cfg.MergedOutputCSV == "" {
		return nil
	}
	merged, err := records.Merge(table, cfg.TxIDColumn, snapshot)
	if err != nil {
		return fmt.Errorf("merge results: %w", err)
	}
	if err := records.WriteTable(cfg.MergedOutputCSV, merged); err != nil {
		return fmt.Errorf("write merged output: %w", err)
	}
	logger.Info("enriched dataset written", zap.String("path", cfg.MergedOutputCSV))
	return nil
}

func newProgressStore(cfg config, logger *zap.Logger) (enricher.ProgressStore, func(), error) {
	switch cfg.Store {
	case storeClickhouse:
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository(clickhouse.Table))
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Warn("failed to close clickhouse connection", zap.Error(err))
			}
		}, nil
	case storeCSV, "":
		logger.Info("using csv progress store", zap.String("path", cfg.OutputCSV))
		return csvstore.New(cfg.OutputCSV, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func logSummary(snapshot *model.Snapshot, logger *zap.Logger) {
	counts := map[string]int{}
	for _, key := range snapshotKeys(snapshot) {
		result, _ := snapshot.Get(key)
		counts[metrics.Outcome(result)]++
	}
	logger.Info("results",
		zap.Int("stored_keys", snapshot.Keys()),
		zap.Int("confirmed", counts["confirmed"]),
		zap.Int("unconfirmed", counts["unconfirmed"]),
		zap.Int("failed", counts["failed"]),
	)
}

func snapshotKeys(snapshot *model.Snapshot) []model.WorkKey {
	seen := make(map[model.WorkKey]struct{}, snapshot.Len())
	keys := make([]model.WorkKey, 0, snapshot.Len())
	for _, r := range snapshot.Results() {
		if _, ok := seen[r.Key]; ok {
			continue
		}
		seen[r.Key] = struct{}{}
		keys = append(keys, r.Key)
	}
	return keys
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
