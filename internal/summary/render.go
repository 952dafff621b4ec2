package summary

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nvandessel/dasstrial/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
}

func subscaleHeaders(first ...string) []string {
	h := append([]string{}, first...)
	for _, s := range models.AllSubscales() {
		h = append(h, s.Name())
	}
	return h
}

func formatMean(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderGroupMeans renders group means as a terminal table.
func RenderGroupMeans(means []GroupMean) string {
	t := newTable(subscaleHeaders("Group", "Timepoint", "N")...)
	for _, m := range means {
		row := []string{m.Group.String(), m.Timepoint.String(), strconv.Itoa(m.N)}
		for _, v := range m.Means {
			row = append(row, formatMean(v))
		}
		t.Row(row...)
	}
	return t.Render()
}

// RenderDifferences renders intervention-minus-control differences.
func RenderDifferences(diffs []Difference) string {
	t := newTable(subscaleHeaders("Timepoint")...)
	for _, d := range diffs {
		row := []string{d.Timepoint.String()}
		for _, v := range d.Delta {
			row = append(row, fmt.Sprintf("%+.2f", v))
		}
		t.Row(row...)
	}
	return t.Render()
}

// RenderBandCounts renders band counts with one column per band.
func RenderBandCounts(counts []BandCount) string {
	headers := []string{"Timepoint", "Subscale"}
	for _, b := range models.AllSeverityBands() {
		headers = append(headers, b.String())
	}
	t := newTable(headers...)

	type key struct {
		tp models.Timepoint
		s  models.Subscale
	}
	grid := make(map[key][]int)
	var order []key
	for _, c := range counts {
		k := key{c.Timepoint, c.Subscale}
		if _, ok := grid[k]; !ok {
			grid[k] = make([]int, len(models.AllSeverityBands()))
			order = append(order, k)
		}
		grid[k][c.Band] = c.Count
	}
	for _, k := range order {
		row := []string{k.tp.String(), k.s.Name()}
		for _, n := range grid[k] {
			row = append(row, strconv.Itoa(n))
		}
		t.Row(row...)
	}
	return t.Render()
}

// Render renders every section of the report, each under a title.
func (r *Report) Render() string {
	sections := []string{
		titleStyle.Render("Mean raw subscale totals"),
		RenderGroupMeans(r.GroupMeans),
		"",
		titleStyle.Render("Intervention minus control"),
		RenderDifferences(r.Differences),
		"",
		titleStyle.Render("Mean item response"),
		renderItemMeans(r.ItemMeans),
	}
	if len(r.BandCounts) > 0 {
		sections = append(sections, "", titleStyle.Render("Severity bands"), RenderBandCounts(r.BandCounts))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderItemMeans(means []ItemMean) string {
	t := newTable("Group", "Timepoint", "Mean")
	for _, m := range means {
		t.Row(m.Group.String(), m.Timepoint.String(), formatMean(m.Mean))
	}
	return t.Render()
}
