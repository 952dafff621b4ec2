package pipeline

import (
	"context"
	"fmt"

	"github.com/nvandessel/dasstrial/internal/table"
	"github.com/nvandessel/dasstrial/internal/visualization"
)

// Outputs names the files a run writes. Empty paths are skipped.
type Outputs struct {
	WidePath   string
	LongPath   string
	ArrowPath  string
	ChartPath  string
	ChartTitle string
}

// Written lists the files produced by Write.
type Written struct {
	Wide  string `json:"wide,omitempty"`
	Long  string `json:"long,omitempty"`
	Arrow string `json:"arrow,omitempty"`
	Chart string `json:"chart,omitempty"`
}

// Write writes the tables and then the chart. Tables are complete on disk
// before rendering starts, so a chart failure never affects them; the
// returned Written reflects what was produced even when err is non-nil.
func (p *Pipeline) Write(ctx context.Context, res *Result, out Outputs) (Written, error) {
	var w Written

	if out.WidePath != "" {
		if err := p.stage(ctx, "write_wide", len(res.Wide), nil, func() (int, error) {
			return len(res.Wide), table.WriteWideFile(out.WidePath, res.Wide)
		}); err != nil {
			return w, err
		}
		w.Wide = out.WidePath
	}

	if out.LongPath != "" {
		if err := p.stage(ctx, "write_long", len(res.Long), nil, func() (int, error) {
			return len(res.Long), table.WriteLongFile(out.LongPath, res.Long)
		}); err != nil {
			return w, err
		}
		w.Long = out.LongPath
	}

	if out.ArrowPath != "" {
		if err := p.stage(ctx, "write_arrow", len(res.Long), nil, func() (int, error) {
			return len(res.Long), table.WriteLongArrowFile(out.ArrowPath, res.Long)
		}); err != nil {
			return w, err
		}
		w.Arrow = out.ArrowPath
	}

	if out.ChartPath != "" {
		if err := p.stage(ctx, "render", len(res.Long), nil, func() (int, error) {
			return len(res.Long), visualization.WriteTrajectoriesFile(out.ChartPath, res.Long, out.ChartTitle)
		}); err != nil {
			return w, fmt.Errorf("tables written, chart failed: %w", err)
		}
		w.Chart = out.ChartPath
	}

	p.logger.Info("wrote outputs", "wide", w.Wide, "long", w.Long, "arrow", w.Arrow, "chart", w.Chart)
	return w, nil
}
