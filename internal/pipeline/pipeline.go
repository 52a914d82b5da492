// Package pipeline runs the stages of a preparation job and hands every
// produced dataset to the configured sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/observability"
)

// Stage prepares one group of datasets.
type Stage interface {
	// Kind is the metric label: hydro, meteo, lulc, urban_demand or future_demand.
	Kind() string
	Name() string
	Prepare(ctx context.Context) ([]domain.Dataset, error)
}

// BatchLoader writes prepared datasets to a destination.
type BatchLoader interface {
	Name() string
	LoadBatch(ctx context.Context, datasets []domain.Dataset) error
}

// Pipeline runs stages in order. A failing stage is logged and recorded but
// does not stop later stages.
type Pipeline struct {
	stages  []Stage
	loaders []BatchLoader
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	mu       sync.Mutex
	progress Summary
}

// New creates a Pipeline over the given stages and sinks.
func New(stages []Stage, loaders []BatchLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		stages:  stages,
		loaders: loaders,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the pipeline has exported at least one
// dataset.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not exported any datasets yet")
	}
	return nil
}

// Ready reports whether any dataset has been exported.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// Summary counts the outcome of a run.
type Summary struct {
	Stages   int `json:"stages"`
	Failed   int `json:"failed"`
	Exported int `json:"exported"`
}

// Progress returns the counts of the current or last run.
func (p *Pipeline) Progress() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

func (p *Pipeline) record(sum Summary) {
	p.mu.Lock()
	p.progress = sum
	p.mu.Unlock()
}

// Run executes every stage once. It returns the joined stage and sink
// errors; cancellation stops the run before the next stage.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	p.logger.Info("pipeline started", "stages", len(p.stages), "sinks", len(p.loaders))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var (
		sum  Summary
		errs []error
	)
	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			errs = append(errs, err)
			break
		}
		sum.Stages++
		n, err := p.runStage(ctx, st)
		sum.Exported += n
		if err != nil {
			sum.Failed++
			errs = append(errs, err)
		}
		p.record(sum)
	}

	p.logger.Info("pipeline finished",
		"stages", sum.Stages,
		"failed", sum.Failed,
		"datasets", sum.Exported,
	)
	return sum, errors.Join(errs...)
}

// runStage prepares and exports one stage, returning how many datasets
// reached every sink.
func (p *Pipeline) runStage(ctx context.Context, st Stage) (int, error) {
	log := p.logger.With("kind", st.Kind(), "stage", st.Name())
	start := time.Now()

	datasets, err := st.Prepare(ctx)
	p.metrics.StageDuration.WithLabelValues(st.Kind()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("stage failed", "error", err)
		p.metrics.StageFailures.WithLabelValues(st.Kind()).Inc()
		return 0, fmt.Errorf("%s %s: %w", st.Kind(), st.Name(), err)
	}

	now := domain.Now()
	skipped := 0
	for i := range datasets {
		datasets[i].ExportedAt = now
		skipped += datasets[i].SkippedRows
	}
	if skipped > 0 {
		p.metrics.SkippedRows.WithLabelValues(st.Kind()).Add(float64(skipped))
	}

	var errs []error
	for _, l := range p.loaders {
		if err := l.LoadBatch(ctx, datasets); err != nil {
			log.Error("export failed", "sink", l.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s %s: export to %s: %w", st.Kind(), st.Name(), l.Name(), err))
			continue
		}
		p.metrics.DatasetsExported.WithLabelValues(l.Name()).Add(float64(len(datasets)))
	}
	if len(errs) > 0 {
		p.metrics.StageFailures.WithLabelValues(st.Kind()).Inc()
		return 0, errors.Join(errs...)
	}

	for _, ds := range datasets {
		log.Info("dataset exported", "dataset", ds.Name, "rows", len(ds.Table.Rows), "skipped_rows", ds.SkippedRows)
	}
	if len(datasets) > 0 {
		p.ready.Store(true)
	}
	return len(datasets), nil
}
