package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/services"
)

const pluginName = "unfuddle-plugin"

func main() {
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		mode           = flag.String("mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
		quiet          = flag.Bool("quiet", false, "Suppress banner output")
		version        = flag.Bool("version", false, "Show version information")
		help           = flag.Bool("help", false, "Show help message")
		validateConfig = flag.Bool("validate", false, "Validate configuration file and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s (build: %s)\n", pluginName, common.GetVersion(), common.GetBuild())
		os.Exit(0)
	}

	if *help {
		showHelp()
		os.Exit(0)
	}

	environment := parseMode(*mode)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Plugin.Environment = environment

	if *validateConfig {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	if err := common.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := common.GetLogger()

	logger.Info().
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", environment).
		Msg("Starting Unfuddle issue plugin")

	if !*quiet {
		common.PrintBanner(pluginName, environment, "Server", common.GetLogFilePath())
	}

	store, err := services.NewOptionStore(&cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open option store")
		os.Exit(1)
	}
	defer store.Close()

	var cache interfaces.Cache
	switch cfg.Cache.Backend {
	case "bolt":
		boltCache, err := services.NewBoltCache(cfg.Cache.BoltPath)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open cache database")
			os.Exit(1)
		}
		defer boltCache.Close()
		cache = boltCache
	default:
		cache = services.NewMemoryCache()
	}

	plugin := services.NewPlugin(cfg, store, cache, logger)

	webServer, err := services.NewWebServer(cfg, plugin, store, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create web server")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	if err := webServer.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Web server error")
		os.Exit(1)
	}

	if !*quiet {
		common.PrintShutdownBanner(pluginName)
	}
	logger.Info().Msg("Unfuddle issue plugin stopped")
}

func parseMode(mode string) string {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return "production"
	default:
		return "development"
	}
}

func showHelp() {
	fmt.Printf("%s - Unfuddle issue tracker integration\n\n", pluginName)
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags]\n\n", pluginName)
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
