package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"lifelist/internal/agenda"
	"lifelist/internal/config"
	"lifelist/internal/dateparse"
	"lifelist/internal/engine"
	appLog "lifelist/internal/log"
	"lifelist/internal/store"
	"lifelist/internal/web"
)

// flagConfig holds CLI flag values; set flags win over the config file.
type flagConfig struct {
	configPath string
	listen     string
	dataFile   string
	logLevel   string
	once       bool
	count      int
	from       string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(config.ResolvePath(flags.configPath))
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", config.ResolvePath(flags.configPath))
		os.Exit(1)
	}
	applyFlags(conf, flags)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_file", conf.DataFile,
		"timezone", loc.String(),
		"default_count", conf.DefaultCount,
		"debounce", conf.Debounce.String(),
		"rescan", conf.Rescan,
		"once", flags.once,
	)

	file := &store.File{Path: conf.DataFile}
	eng, err := engine.New(file, engine.Options{Location: loc, Debounce: conf.Debounce})
	if err != nil {
		appLog.Error("cannot load data file", err, "path", conf.DataFile)
		os.Exit(1)
	}
	defer eng.Close()

	if flags.once {
		if err := printAgenda(eng, loc, flags.from, conf.DefaultCount); err != nil {
			appLog.Error("agenda failed", err)
			os.Exit(1)
		}
		return
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := eng.Run(ctx, file, conf.Rescan); err != nil {
			appLog.Error("data file watch stopped", err)
		}
	}()

	if err := web.ListenAndServe(ctx, conf, eng); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		stop()
		wg.Wait()
		os.Exit(1)
	}

	wg.Wait()
	appLog.Info("lifelist exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVarP(&cfg.configPath, "config", "c", "", "Path to config file (default $"+config.ConfigPathEnv+" or "+config.DefaultConfigPath+")")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVarP(&cfg.dataFile, "data", "d", "", "Events data file (overrides config and $"+config.DataFileEnv+")")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.once, "once", false, "Print the agenda and exit")
	flag.IntVarP(&cfg.count, "count", "n", 0, "Occurrences to print with --once (default from config)")
	flag.StringVar(&cfg.from, "from", "", "First day to print with --once, e.g. \"March 3\" (default today)")

	flag.Parse()

	return cfg
}

func applyFlags(conf *config.Config, flags flagConfig) {
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataFile != "" {
		conf.DataFile = flags.dataFile
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	if flags.count > 0 {
		conf.DefaultCount = flags.count
	}
}

func printAgenda(eng *engine.Engine, loc *time.Location, fromFlag string, count int) error {
	from := time.Now().In(loc)
	if fromFlag != "" {
		p := &dateparse.Parser{Location: loc}
		t, err := p.Parse(fromFlag)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		from = t
	}
	return agenda.Write(os.Stdout, eng.Agenda(from, count))
}
