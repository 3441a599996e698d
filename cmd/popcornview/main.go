package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/voyagen/popcornview/internal/cache"
	"github.com/voyagen/popcornview/internal/config"
	"github.com/voyagen/popcornview/internal/httpclient"
	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/server"
	"github.com/voyagen/popcornview/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.Init(cfg.LogLevel, nil)

	ctx := context.Background()

	hidden, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer hidden.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			logger.Fatalf("redis ping: %v", err)
		}
		hidden = store.NewCachedStore(hidden, rds)
		logger.Infof("redis connected (caching enabled)")
	} else {
		logger.Infof("redis disabled (REDIS_URL not set)")
	}

	upstream, err := httpclient.New(httpclient.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.UpstreamProxy,
		RPS:       cfg.UpstreamRPS,
	})
	if err != nil {
		logger.Fatalf("upstream client: %v", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, hidden, rds, upstream)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Errorf("server: %v", err)
		os.Exit(1)
	}
}

// openStore opens the hidden-category store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (store.Visibility, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		b, err := store.NewSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Infof("store: sqlite at %s", cfg.DatabaseURL)
		return store.New(b), nil
	case config.StorePostgres:
		if err := store.RunMigrations(cfg.DatabaseURL, "file://"+migrationsDir()); err != nil {
			return nil, err
		}
		b, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Infof("store: postgres")
		return store.New(b), nil
	default:
		b, err := store.NewMemory()
		if err != nil {
			return nil, err
		}
		logger.Warnf("store: memory (hidden categories are lost on restart)")
		return store.New(b), nil
	}
}

// migrationsDir resolves ./migrations against the working directory, then
// against the executable.
func migrationsDir() string {
	dir, err := filepath.Abs("migrations")
	if err != nil {
		dir = "migrations"
	}
	if _, err := os.Stat(dir); err != nil {
		if exe, e := os.Executable(); e == nil {
			dir = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return dir
}
