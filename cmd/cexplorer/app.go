package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cexplorer/internal/api"
	"cexplorer/internal/catalog"
	"cexplorer/internal/config"
	"cexplorer/internal/logging"
	"cexplorer/internal/version"
)

// app is what every service-facing command needs.
type app struct {
	cfg     *config.Plugin
	log     *zap.Logger
	client  *api.Client
	catalog *catalog.Catalog
	logFile *os.File
}

// newApp loads the plugin settings and builds the logger, client and catalog
// they describe. Flags override the settings file.
func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("locate settings: %w", err)
		}
		path = p
	}
	cfg, unknown, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, _ := flags.GetString("log-level")
	if level == "" {
		level = cfg.LogLevel.Value()
	}
	format, _ := flags.GetString("log-format")
	if format == "" {
		format = cfg.LogFormat.Value()
	}
	var (
		out     io.Writer = cmd.ErrOrStderr()
		logFile *os.File
	)
	if p, _ := flags.GetString("log-file"); p != "" {
		logFile, err = os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = logFile
	}
	log, err := logging.New(logging.Options{Level: level, Format: format, Output: out})
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}
	if len(unknown) > 0 {
		log.Warn("ignoring unknown settings", zap.String("file", path), zap.Strings("keys", unknown))
	}

	baseURL, _ := flags.GetString("url")
	if baseURL == "" {
		baseURL = cfg.ServiceURL.Value()
	}
	client, err := api.New(api.Options{
		BaseURL:   baseURL,
		Timeout:   cfg.Timeout(),
		Proxy:     cfg.Proxy(),
		UserAgent: "cexplorer/" + version.Current().Version,
		Logger:    log.Named("api"),
	})
	if err != nil {
		return nil, err
	}

	opts := catalog.Options{TTL: cfg.CacheTTL(), Logger: log.Named("catalog")}
	if noCache, _ := flags.GetBool("no-cache"); !noCache {
		dir := cfg.CacheDir.Value()
		if dir == "" {
			dir, err = catalog.DefaultCacheDir("cexplorer")
		}
		if err == nil {
			opts.Disk, err = catalog.OpenDiskCache(dir, log.Named("cache"))
		}
		if err != nil {
			log.Warn("catalog disk cache disabled", zap.Error(err))
		}
	}
	return &app{
		cfg:     cfg,
		log:     log,
		client:  client,
		catalog: catalog.New(client, opts),
		logFile: logFile,
	}, nil
}

// close saves modified settings and flushes the logger.
func (a *app) close() {
	if err := a.cfg.Close(); err != nil {
		a.log.Error("failed to save settings", zap.Error(err))
	}
	// stderr sync fails on some terminals
	_ = a.log.Sync()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
