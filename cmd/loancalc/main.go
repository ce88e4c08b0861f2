package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tmorand/auto-loan-calc/internal/catalog"
	"github.com/tmorand/auto-loan-calc/internal/config"
	"github.com/tmorand/auto-loan-calc/internal/quote"
	"github.com/tmorand/auto-loan-calc/pkg/constants"
	"github.com/tmorand/auto-loan-calc/pkg/output"
	"github.com/tmorand/auto-loan-calc/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// buildCatalogSource assembles the vehicle source from configuration: static
// entries always work, and an API endpoint layers remote lookup behind an
// in-process cache.
func buildCatalogSource(cfg config.CatalogConfig, logger *zap.Logger) catalog.Source {
	vehicles := make([]catalog.Vehicle, 0, len(cfg.Vehicles))
	for _, v := range cfg.Vehicles {
		vehicles = append(vehicles, catalog.Vehicle{Make: v.Make, Model: v.Model, Year: v.Year})
	}

	if cfg.API.BaseURL == "" {
		return catalog.NewStaticSource(vehicles)
	}

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	remote := catalog.NewAPISource(cfg.API.BaseURL, &http.Client{Timeout: timeout})
	return catalog.NewCachedSource(remote, catalog.NewMemoryCache(), logger)
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	source := buildCatalogSource(conf.Catalog, logger)

	quotes := make([]*quote.Quote, 0, len(conf.Quotes))
	for i := range conf.Quotes {
		qc := &conf.Quotes[i]

		label := ""
		if qc.Vehicle.Make != "" || qc.Vehicle.Model != "" {
			vehicle, err := source.Lookup(context.Background(), qc.Vehicle.Make, qc.Vehicle.Model, qc.Vehicle.Year)
			if err != nil {
				if !errors.Is(err, catalog.ErrVehicleNotFound) {
					logger.Warn("vehicle lookup failed",
						zap.String("op", "main"),
						zap.String("quote", qc.Name),
						zap.Error(err),
					)
				}
				label = catalog.Vehicle{Make: qc.Vehicle.Make, Model: qc.Vehicle.Model, Year: qc.Vehicle.Year}.Label()
			} else {
				label = vehicle.Label()
			}
		}

		q, err := quote.Compute(logger, quote.Request{
			Name:         qc.Name,
			VehicleLabel: label,
			StartDate:    qc.StartDate,
			Inputs:       qc.LoanInputs(),
		})
		if err != nil {
			logger.Fatal("failed to compute quote",
				zap.String("op", "main"),
				zap.String("quote", qc.Name),
				zap.Error(err),
			)
		}
		quotes = append(quotes, q)
	}

	// Handle output.
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(quotes)
	case constants.OutputFormatCSV:
		output.CsvFormat(quotes)
	}
}
