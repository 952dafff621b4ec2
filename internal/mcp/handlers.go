package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/pathutil"
	"github.com/nvandessel/dasstrial/internal/ratelimit"
	"github.com/nvandessel/dasstrial/internal/severity"
	"github.com/nvandessel/dasstrial/internal/summary"
	"github.com/nvandessel/dasstrial/internal/table"
)

// maxParticipantsPerGroup bounds a single dass_simulate call.
const maxParticipantsPerGroup = 10000

// registerTools registers all dass_* tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolClassify,
		Description: "Classify a scaled DASS-21 subscale score into its severity band",
	}, s.handleDassClassify)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSimulate,
		Description: "Simulate a two-arm DASS-21 trial and report group means, differences and severity band counts",
	}, s.handleDassSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRuns,
		Description: "List runs stored in the project archive",
	}, s.handleDassRuns)
}

func (s *Server) handleDassClassify(ctx context.Context, req *sdk.CallToolRequest, args DassClassifyInput) (_ *sdk.CallToolResult, _ DassClassifyOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolClassify, start, retErr, sanitizeToolParams(map[string]interface{}{
			"score": args.Score, "subscale": args.Subscale,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolClassify); err != nil {
		return nil, DassClassifyOutput{}, err
	}

	sub, err := models.ParseSubscale(args.Subscale)
	if err != nil {
		return nil, DassClassifyOutput{}, err
	}
	band, err := severity.Classify(args.Score, sub)
	if err != nil {
		return nil, DassClassifyOutput{}, err
	}

	return nil, DassClassifyOutput{
		Subscale: sub.Name(),
		Score:    args.Score,
		Band:     band.String(),
		BandRank: int(band),
	}, nil
}

func (s *Server) handleDassSimulate(ctx context.Context, req *sdk.CallToolRequest, args DassSimulateInput) (_ *sdk.CallToolResult, _ DassSimulateOutput, retErr error) {
	start := time.Now()
	params := map[string]interface{}{"archive": args.Archive}
	if args.ParticipantsPerGroup != 0 {
		params["participants_per_group"] = args.ParticipantsPerGroup
	}
	if args.Seed != nil {
		params["seed"] = *args.Seed
	}
	if args.TreatmentEffect != nil {
		params["treatment_effect"] = *args.TreatmentEffect
	}
	if args.Output != "" {
		params["output"] = args.Output
	}
	defer func() {
		s.auditTool(ratelimit.ToolSimulate, start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSimulate); err != nil {
		return nil, DassSimulateOutput{}, err
	}

	cfg := s.defaults
	cfg.Weights = append([]float64(nil), s.defaults.Weights...)
	cfg.Timepoints = append([]models.Timepoint(nil), s.defaults.Timepoints...)
	if args.ParticipantsPerGroup != 0 {
		if args.ParticipantsPerGroup > maxParticipantsPerGroup {
			return nil, DassSimulateOutput{}, &models.ConfigurationError{
				Field:  "participants_per_group",
				Reason: fmt.Sprintf("at most %d per call", maxParticipantsPerGroup),
			}
		}
		cfg.ParticipantsPerGroup = args.ParticipantsPerGroup
	}
	if args.Seed != nil {
		cfg.Seed = *args.Seed
	}
	if args.TreatmentEffect != nil {
		cfg.TreatmentEffect = *args.TreatmentEffect
	}

	// Validate the destination before doing any work.
	var outPath string
	if args.Output != "" {
		var err error
		if outPath, err = pathutil.ResolveWithin(args.Output, s.root); err != nil {
			return nil, DassSimulateOutput{}, err
		}
	}

	res, err := s.pipeline.Run(ctx, cfg)
	if err != nil {
		return nil, DassSimulateOutput{}, err
	}
	report, err := summary.Build(res.Wide, res.Long)
	if err != nil {
		return nil, DassSimulateOutput{}, err
	}

	out := DassSimulateOutput{
		Seed:        cfg.Seed,
		WideRows:    len(res.Wide),
		LongRows:    len(res.Long),
		GroupMeans:  groupMeanItems(report.GroupMeans),
		Differences: differenceItems(report.Differences),
		BandCounts:  bandCountItems(report.BandCounts),
	}

	if outPath != "" {
		if err := table.WriteLongFile(outPath, res.Long); err != nil {
			return nil, DassSimulateOutput{}, fmt.Errorf("failed to write long table: %w", err)
		}
		out.Output = outPath
	}

	if args.Archive {
		meta, err := s.pipeline.Archive(ctx, s.store, res)
		if err != nil {
			return nil, DassSimulateOutput{}, err
		}
		out.RunID = meta.ID
	}

	out.Message = fmt.Sprintf("Simulated %d participants per arm (seed %d): %d wide rows, %d long rows",
		cfg.ParticipantsPerGroup, cfg.Seed, out.WideRows, out.LongRows)
	if out.RunID != "" {
		out.Message += fmt.Sprintf(", archived as %s", out.RunID)
	}
	return nil, out, nil
}

func (s *Server) handleDassRuns(ctx context.Context, req *sdk.CallToolRequest, args DassRunsInput) (_ *sdk.CallToolResult, _ DassRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRuns, start, retErr, sanitizeToolParams(map[string]interface{}{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRuns); err != nil {
		return nil, DassRunsOutput{}, err
	}

	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, DassRunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		tps := make([]string, len(r.Timepoints))
		for i, tp := range r.Timepoints {
			tps[i] = tp.String()
		}
		items = append(items, RunListItem{
			ID:                   r.ID,
			ParticipantsPerGroup: r.ParticipantsPerGroup,
			Seed:                 r.Seed,
			TreatmentEffect:      r.TreatmentEffect,
			Timepoints:           tps,
			Rows:                 r.Rows,
			CreatedAt:            r.CreatedAt,
		})
	}

	return nil, DassRunsOutput{Runs: items, Count: len(items)}, nil
}

func perSubscaleMap(p summary.PerSubscale) map[string]float64 {
	m := make(map[string]float64, len(p))
	for _, sub := range models.AllSubscales() {
		m[sub.Column()] = p[sub]
	}
	return m
}

func groupMeanItems(means []summary.GroupMean) []GroupMeanItem {
	items := make([]GroupMeanItem, 0, len(means))
	for _, m := range means {
		items = append(items, GroupMeanItem{
			Group:     m.Group.String(),
			Timepoint: m.Timepoint.String(),
			N:         m.N,
			Means:     perSubscaleMap(m.Means),
		})
	}
	return items
}

func differenceItems(diffs []summary.Difference) []DifferenceItem {
	items := make([]DifferenceItem, 0, len(diffs))
	for _, d := range diffs {
		items = append(items, DifferenceItem{
			Timepoint: d.Timepoint.String(),
			Delta:     perSubscaleMap(d.Delta),
		})
	}
	return items
}

func bandCountItems(counts []summary.BandCount) []BandCountItem {
	items := make([]BandCountItem, 0, len(counts))
	for _, c := range counts {
		items = append(items, BandCountItem{
			Timepoint: c.Timepoint.String(),
			Subscale:  c.Subscale.Column(),
			Band:      c.Band.String(),
			Count:     c.Count,
		})
	}
	return items
}
