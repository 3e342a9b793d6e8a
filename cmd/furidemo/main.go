package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"furigo/furi"
	"furigo/internal/buildinfo"
	"furigo/kernel"
	"furigo/rt"
)

func main() {
	var (
		configPath = flag.String("config", "", "Kernel config file (YAML).")
		scenario   = flag.String("scenario", "all", "Scenario to run: all|"+strings.Join(scenarioNames(), "|")+".")
		logJSON    = flag.Bool("log-json", false, "Log JSON instead of console output.")
		sleep      = flag.Duration("sleep", 2*time.Second, "Sender delay in the stream scenario.")
		version    = flag.Bool("version", false, "Print the build version and exit.")
	)
	flag.Parse()

	if *version {
		fmt.Println(buildinfo.String())
		return
	}

	logger, err := newLogger(*logJSON)
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer logger.Sync()
	kernel.SetLogger(logger.Named("kernel"))
	furi.SetLogger(logger.Named("furi"))

	cfg := kernel.DefaultConfig()
	if *configPath != "" {
		if cfg, err = kernel.LoadConfig(*configPath); err != nil {
			fatalf("%v", err)
		}
	}
	if _, err := kernel.Init(cfg); err != nil {
		fatalf("%v", err)
	}
	rt.InstallCrashHandler(logger.Named("crash"))

	selected, err := selectScenarios(*scenario)
	if err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("furidemo starting",
		zap.String("version", buildinfo.Short()),
		zap.Uint32("tick_hz", cfg.TickHz),
		zap.Strings("scenarios", selected),
	)

	opts := options{streamDelay: *sleep}
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range selected {
		run := scenarios[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := run(opts); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			logger.Info("scenario passed", zap.String("scenario", name), zap.Duration("took", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if err == context.Canceled {
			return
		}
		logger.Error("scenario failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(json bool) (*zap.Logger, error) {
	if json {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func selectScenarios(arg string) ([]string, error) {
	if arg == "" || arg == "all" {
		return scenarioNames(), nil
	}
	var out []string
	for _, name := range strings.Split(arg, ",") {
		name = strings.TrimSpace(name)
		if _, ok := scenarios[name]; !ok {
			return nil, fmt.Errorf("unknown scenario: %s", name)
		}
		out = append(out, name)
	}
	return out, nil
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
