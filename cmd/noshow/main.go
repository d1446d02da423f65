// Command noshow analyzes a medical appointment dataset and reports how well
// random forests predict missed appointments.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/paveg/noshow/internal/charts"
	"github.com/paveg/noshow/internal/config"
	"github.com/paveg/noshow/internal/logging"
	"github.com/paveg/noshow/internal/pipeline"
	"github.com/paveg/noshow/internal/version"
	"github.com/sirupsen/logrus"
)

func customUsage(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "noshow appointment analysis (version %s)\n\n", version.Version)
		fmt.Fprintf(w, "Usage: noshow [options]\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "  -%s\n\t\t%s\n", f.Name, f.Usage)
		})
		fmt.Fprintf(w, "\nEnvironment variables prefixed with NOSHOW_ override the config file;\n")
		fmt.Fprintf(w, "flags override both.\n")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes the analysis and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("noshow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Configuration file (.json, .yaml or .yml)")
	dataPath := fs.String("data", "", "Appointment CSV file (overrides dataset_path)")
	format := fs.String("format", "", "Report format: text or json (overrides report_format)")
	exportPath := fs.String("export-cleaned", "", "Write the cleaned table to this file (.csv, .json, .jsonl or .parquet)")
	verbose := fs.Bool("v", false, "Verbose logging (debug level)")
	versionFlag := fs.Bool("version", false, "Print version information and exit")
	fs.Usage = customUsage(fs, stderr)

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *versionFlag {
		fmt.Fprint(stdout, version.Info().String())
		return 0
	}

	cfg := config.LoadFromEnv()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "noshow: %v\n", err)
			return 1
		}
		cfg = loaded.WithEnv()
	}

	if *dataPath != "" {
		cfg.DatasetPath = *dataPath
	}
	if *format != "" {
		cfg.ReportFormat = *format
	}
	if *exportPath != "" {
		cfg.ExportCleaned = *exportPath
	}
	if *verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	validated, warnings, err := config.NewConfigValidator().Validate(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "noshow: %v\n", err)
		return 1
	}

	logger := logging.New(validated.LogLevel, validated.LogFormat, stderr)
	for _, w := range warnings {
		logger.Warn(w)
	}

	p, err := pipeline.New(validated, pipeline.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Error("invalid configuration")
		return 1
	}

	report, err := p.Run(ctx)
	if err != nil {
		logger.WithError(err).Error("analysis failed")
		return 1
	}

	var renderer charts.Renderer
	if validated.Charts {
		renderer = charts.NewTextRenderer(validated.ChartWidth)
	}
	if err := report.Write(stdout, validated.ReportFormat, renderer); err != nil {
		logger.WithError(err).Error("writing report")
		return 1
	}
	return 0
}
