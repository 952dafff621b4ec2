// Package visualization renders per-participant score trajectories as an
// HTML page of line charts and can serve that page locally.
package visualization

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// participantTrack holds one participant's scores by timepoint and subscale.
type participantTrack struct {
	id     string
	group  models.Group
	scores map[models.Timepoint][constants.NumSubscales]*models.LongRecord
}

// checkRenderable validates every row the renderer reads.
func checkRenderable(long []models.LongRecord) error {
	if len(long) == 0 {
		return &models.SchemaError{Reason: "no rows to render"}
	}
	for i, r := range long {
		if !r.Subscale.Valid() {
			return fmt.Errorf("row %d: %w", i+1, &models.UnknownSubscaleError{Label: r.Subscale.Name()})
		}
		if !r.Timepoint.Valid() {
			return &models.SchemaError{Row: i + 1, Column: "timepoint", Reason: "invalid timepoint"}
		}
		if !r.Band.Valid() {
			return &models.SchemaError{Row: i + 1, Column: "severity_band", Reason: "invalid severity band"}
		}
	}
	return nil
}

// tracks groups a sorted copy of long by participant.
func tracks(long []models.LongRecord) ([]participantTrack, []models.Timepoint) {
	rows := slices.Clone(long)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Less(rows[j]) })

	seenTP := make(map[models.Timepoint]bool)
	var out []participantTrack
	for i := range rows {
		r := &rows[i]
		if len(out) == 0 || out[len(out)-1].id != r.ID {
			out = append(out, participantTrack{
				id:     r.ID,
				group:  r.Group,
				scores: make(map[models.Timepoint][constants.NumSubscales]*models.LongRecord),
			})
		}
		t := &out[len(out)-1]
		cell := t.scores[r.Timepoint]
		cell[r.Subscale] = r
		t.scores[r.Timepoint] = cell
		seenTP[r.Timepoint] = true
	}

	var tps []models.Timepoint
	for _, tp := range models.AllTimepoints() {
		if seenTP[tp] {
			tps = append(tps, tp)
		}
	}
	return out, tps
}

func trajectoryChart(t participantTrack, tps []models.Timepoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: "trajectory_" + t.id,
			Width:   "640px",
			Height:  "360px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    t.id,
			Subtitle: t.group.String(),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			Name: "timepoint",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Name: "score",
			Min:  0,
			Max:  constants.MaxScore,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)

	labels := make([]string, 0, len(tps))
	for _, tp := range tps {
		labels = append(labels, tp.String())
	}
	line.SetXAxis(labels)

	for _, s := range models.AllSubscales() {
		items := make([]opts.LineData, 0, len(tps))
		for _, tp := range tps {
			r := t.scores[tp][s]
			if r == nil {
				items = append(items, opts.LineData{Value: nil})
				continue
			}
			items = append(items, opts.LineData{Value: r.Score, Name: r.Band.String()})
		}
		line.AddSeries(s.Name(), items)
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
	)
	return line
}

// BuildTrajectoryPage builds a page with one line chart per participant,
// timepoints on the x axis in ordinal order and one series per subscale.
// The input slice is not modified.
func BuildTrajectoryPage(long []models.LongRecord, title string) (*components.Page, error) {
	if err := checkRenderable(long); err != nil {
		return nil, err
	}
	if title == "" {
		title = constants.DefaultChartTitle
	}

	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)

	parts, tps := tracks(long)
	for _, t := range parts {
		page.AddCharts(trajectoryChart(t, tps))
	}
	return page, nil
}

// RenderTrajectories writes the trajectory page as HTML to w.
func RenderTrajectories(w io.Writer, long []models.LongRecord, title string) error {
	page, err := BuildTrajectoryPage(long, title)
	if err != nil {
		return err
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering trajectories: %w", err)
	}
	return nil
}

// WriteTrajectoriesFile renders the trajectory page to path. The page is
// built before the file is created, so invalid input never leaves a file.
func WriteTrajectoriesFile(path string, long []models.LongRecord, title string) error {
	page, err := BuildTrajectoryPage(long, title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating chart directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := page.Render(bw); err != nil {
		f.Close()
		return fmt.Errorf("rendering trajectories: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing chart file: %w", err)
	}
	return f.Close()
}
