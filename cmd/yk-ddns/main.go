package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/controller"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/drivers"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/metrics"
)

var Version = "dev"

const (
	exitOK     = 0
	exitFatal  = 1
	exitFailed = 2

	pushTimeout = 10 * time.Second
)

func main() {
	os.Exit(run(ctrl.SetupSignalHandler(), os.Args[1:], os.Stdout, os.Stderr))
}

// run performs a single update pass and returns the process exit code.
// Fatal errors are written to stderr once; everything else goes through the
// logger.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := zap.Options{DestWriter: stderr}
	goFlags := flag.NewFlagSet("yk-ddns", flag.ContinueOnError)
	opts.BindFlags(goFlags)

	flags := pflag.NewFlagSet("yk-ddns", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.AddGoFlagSet(goFlags)
	configPath := flags.String("config", config.DefaultPath(), "path to the YAML configuration file")
	showVersion := flags.Bool("version", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return exitFatal
	}

	if *showVersion {
		fmt.Fprintln(stdout, "yk-ddns", Version)
		return exitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	if opts.Level == nil {
		if cfg.Debug {
			opts.Level = zapcore.DebugLevel
		} else {
			opts.Level = zapcore.ErrorLevel
		}
	}
	opts.Development = opts.Development || cfg.Debug
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "error: unable to open log file: %v\n", err)
			return exitFatal
		}
		defer f.Close()
		opts.DestWriter = f
	}
	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger)

	log := logger.WithName("setup")
	log.V(1).Info("starting yk-ddns", "version", Version, "config", *configPath)
	log.V(1).Info("loaded drivers", "count", ddns.Default().Len(),
		"services", ddns.Default().Services(), "updatemethods", ddns.Default().Sources())

	recorder := metrics.NewRecorder()
	runner := &controller.Runner{
		Registry: ddns.Default(),
		Log:      logger.WithName("runner"),
		Metrics:  recorder,
	}

	report, err := runner.Run(ctx, cfg.Entries)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	if cfg.Metrics.PushGateway != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		if err := recorder.Push(pushCtx, cfg.Metrics.PushGateway, cfg.Metrics.Job); err != nil {
			log.Error(err, "unable to push metrics", "pushgateway", cfg.Metrics.PushGateway)
		}
		cancel()
	}

	log.V(1).Info("run finished", "succeeded", report.Succeeded(), "failed", report.Failed())
	if report.Failed() > 0 {
		fmt.Fprint(stdout, report)
		return exitFailed
	}
	return exitOK
}
