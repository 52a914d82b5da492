package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/alluvium/nepal-weap-prep/internal/adapter/httpadapter"
	kafkaadapter "github.com/alluvium/nepal-weap-prep/internal/adapter/kafka"
	"github.com/alluvium/nepal-weap-prep/internal/adapter/overpass"
	"github.com/alluvium/nepal-weap-prep/internal/config"
	"github.com/alluvium/nepal-weap-prep/internal/job"
	"github.com/alluvium/nepal-weap-prep/internal/observability"
	"github.com/alluvium/nepal-weap-prep/internal/pipeline"
	"github.com/alluvium/nepal-weap-prep/internal/weapcsv"
)

func runJob(parent context.Context, jobPath string, noKafka bool) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	j, err := job.Load(jobPath, cfg.InputDir)
	if err != nil {
		logger.Error("invalid job file", "path", jobPath, "error", err)
		return err
	}

	client := overpass.NewClient(cfg.OverpassEndpoint, cfg.OverpassTimeout, metrics, logger)
	lookup := overpass.NewCachedLookup(client, cfg.OverpassCacheSize, metrics)

	csvSink, err := weapcsv.NewFileSink(cfg.OutputDir)
	if err != nil {
		return err
	}
	loaders := []pipeline.BatchLoader{csvSink}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled && !noKafka {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	stages := pipeline.StagesFromJob(j, pipeline.Deps{
		Lookup:        lookup,
		EqualAreaProj: cfg.EqualAreaProj,
		Logger:        logger,
		Metrics:       metrics,
	})
	p := pipeline.New(stages, loaders, logger, metrics)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, func() any { return p.Progress() }, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	sum, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("run finished with errors", "failed", sum.Failed, "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("run complete", "datasets", sum.Exported, "output_dir", cfg.OutputDir)
	return runErr
}

func validateJob(out io.Writer, jobPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	j, err := job.Load(jobPath, cfg.InputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: OK (%d hydro, %d meteo, %d lulc, %d urban demand, %d future demand)\n",
		jobPath, len(j.Hydro), len(j.Meteo), len(j.LULC), len(j.UrbanDemand), len(j.FutureDemand))
	return nil
}
