// Package pipeline runs the trial stages in order: simulate item responses,
// aggregate them into the wide table, verify, reshape to the long table and
// classify severity. Each stage is logged and, at debug level, traced.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/dasstrial/internal/logging"
	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/scoring"
	"github.com/nvandessel/dasstrial/internal/severity"
	"github.com/nvandessel/dasstrial/internal/simulation"
	"github.com/nvandessel/dasstrial/internal/store"
)

// Result is the output of a complete run.
type Result struct {
	Config simulation.Config
	Wide   []models.WideRecord
	Long   []models.LongRecord
}

// Pipeline wires the stages together. A zero Pipeline is not usable; call New.
type Pipeline struct {
	logger     *slog.Logger
	trace      *logging.TraceLogger
	partition  scoring.Partition
	classifier *severity.Classifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPartition overrides the item-to-subscale mapping.
func WithPartition(p scoring.Partition) Option {
	return func(pl *Pipeline) { pl.partition = p }
}

// WithClassifier overrides the severity cut-off table.
func WithClassifier(c *severity.Classifier) Option {
	return func(pl *Pipeline) { pl.classifier = c }
}

// New creates a pipeline. logger may be nil (output is discarded) and trace
// may be nil (tracing is off).
func New(logger *slog.Logger, trace *logging.TraceLogger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Pipeline{
		logger:    logger,
		trace:     trace,
		partition: scoring.DefaultPartition(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.classifier == nil {
		p.classifier, _ = severity.NewClassifier(severity.DefaultTable())
	}
	return p
}

// stage runs fn, then logs and traces the outcome.
func (p *Pipeline) stage(ctx context.Context, name string, rowsIn int, attrs map[string]any, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	start := time.Now()
	rowsOut, err := fn()
	elapsed := time.Since(start)

	ev := logging.StageEvent{
		Stage:      name,
		RowsIn:     rowsIn,
		RowsOut:    rowsOut,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
		Attrs:      attrs,
	}
	if err != nil {
		ev.Error = err.Error()
		p.trace.Stage(ev)
		p.logger.Debug("stage failed", "stage", name, "rows_in", rowsIn, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.trace.Stage(ev)
	p.logger.Debug("stage complete", "stage", name, "rows_in", rowsIn, "rows_out", rowsOut, "duration", elapsed)
	return nil
}

// Simulate draws item responses for cfg and aggregates them into the wide table.
func (p *Pipeline) Simulate(ctx context.Context, cfg simulation.Config) ([]models.WideRecord, error) {
	sim, err := simulation.New(cfg)
	if err != nil {
		return nil, err
	}

	var responses []models.ItemResponse
	attrs := map[string]any{
		"seed":                   cfg.Seed,
		"participants_per_group": cfg.ParticipantsPerGroup,
		"treatment_effect":       cfg.TreatmentEffect,
	}
	if err := p.stage(ctx, "simulate", 0, attrs, func() (int, error) {
		responses = sim.Responses()
		return len(responses), nil
	}); err != nil {
		return nil, err
	}

	var wide []models.WideRecord
	if err := p.stage(ctx, "aggregate", len(responses), nil, func() (int, error) {
		var err error
		wide, err = scoring.Aggregate(responses, p.partition)
		return len(wide), err
	}); err != nil {
		return nil, err
	}

	p.logger.Info("simulated trial", "participants", 2*cfg.ParticipantsPerGroup, "rows", len(wide), "seed", cfg.Seed)
	return wide, nil
}

// Classify verifies a wide table, reshapes it to long form and assigns
// severity bands. It returns either a complete long table or an error.
func (p *Pipeline) Classify(ctx context.Context, wide []models.WideRecord) ([]models.LongRecord, error) {
	if err := p.stage(ctx, "verify", len(wide), nil, func() (int, error) {
		return len(wide), scoring.VerifyWide(wide, p.partition)
	}); err != nil {
		return nil, err
	}

	var long []models.LongRecord
	if err := p.stage(ctx, "reshape", len(wide), nil, func() (int, error) {
		var err error
		long, err = scoring.Reshape(wide)
		return len(long), err
	}); err != nil {
		return nil, err
	}

	var classified []models.LongRecord
	if err := p.stage(ctx, "classify", len(long), nil, func() (int, error) {
		var err error
		classified, err = p.classifier.ClassifyAll(long)
		return len(classified), err
	}); err != nil {
		return nil, err
	}

	if want := len(models.AllSubscales()) * len(wide); len(classified) != want {
		return nil, &models.SchemaError{Reason: fmt.Sprintf("long table has %d rows, want %d", len(classified), want)}
	}

	p.logger.Info("classified table", "wide_rows", len(wide), "long_rows", len(classified))
	return classified, nil
}

// Run simulates and classifies in one pass.
func (p *Pipeline) Run(ctx context.Context, cfg simulation.Config) (*Result, error) {
	wide, err := p.Simulate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	long, err := p.Classify(ctx, wide)
	if err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Wide: wide, Long: long}, nil
}

// MetaFor returns the archive metadata describing cfg.
func MetaFor(cfg simulation.Config) store.RunMeta {
	return store.RunMeta{
		ParticipantsPerGroup: cfg.ParticipantsPerGroup,
		Seed:                 cfg.Seed,
		TreatmentEffect:      cfg.TreatmentEffect,
		Weights:              append([]float64(nil), cfg.Weights...),
		Timepoints:           append([]models.Timepoint(nil), cfg.Timepoints...),
	}
}

// Archive stores the result in rs.
func (p *Pipeline) Archive(ctx context.Context, rs store.RunStore, res *Result) (store.RunMeta, error) {
	var meta store.RunMeta
	err := p.stage(ctx, "archive", len(res.Long), nil, func() (int, error) {
		var err error
		meta, err = rs.SaveRun(ctx, MetaFor(res.Config), res.Long)
		return meta.Rows, err
	})
	if err != nil {
		return store.RunMeta{}, err
	}
	p.logger.Info("archived run", "run_id", meta.ID, "rows", meta.Rows)
	return meta, nil
}
