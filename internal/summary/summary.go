// Package summary computes the descriptive checks run after a simulation:
// group means per timepoint, intervention-minus-control differences, item
// means and severity band counts.
package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// PerSubscale holds one value per subscale, indexed by models.Subscale.
// It marshals to a JSON object keyed by column label.
type PerSubscale [constants.NumSubscales]float64

// MarshalJSON implements json.Marshaler.
func (p PerSubscale) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(p))
	for _, s := range models.AllSubscales() {
		m[s.Column()] = p[s]
	}
	return json.Marshal(m)
}

// GroupMean is the mean pre-scaling total of each subscale for one group at one timepoint.
type GroupMean struct {
	Group     models.Group     `json:"group"`
	Timepoint models.Timepoint `json:"timepoint"`
	N         int              `json:"n"`
	Means     PerSubscale      `json:"means"`
}

// Difference is intervention minus control for one timepoint.
type Difference struct {
	Timepoint models.Timepoint `json:"timepoint"`
	Delta     PerSubscale      `json:"delta"`
}

// ItemMean is the mean item response for one group at one timepoint.
type ItemMean struct {
	Group     models.Group     `json:"group"`
	Timepoint models.Timepoint `json:"timepoint"`
	Mean      float64          `json:"mean"`
}

// BandCount counts long rows falling in one band for a timepoint and subscale.
type BandCount struct {
	Timepoint models.Timepoint    `json:"timepoint"`
	Subscale  models.Subscale     `json:"subscale"`
	Band      models.SeverityBand `json:"severity_band"`
	Count     int                 `json:"count"`
}

// Round2 rounds to two decimal places, half to even.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

type cell struct {
	group     models.Group
	timepoint models.Timepoint
}

func parseCell(w models.WideRecord, row int) (cell, error) {
	g, err := models.ParseGroup(w.Group)
	if err != nil {
		return cell{}, models.AtRow(err, row)
	}
	tp, err := models.ParseTimepoint(w.Timepoint)
	if err != nil {
		return cell{}, models.AtRow(err, row)
	}
	return cell{g, tp}, nil
}

func sortCells(cells []cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].group != cells[j].group {
			return cells[i].group < cells[j].group
		}
		return cells[i].timepoint < cells[j].timepoint
	})
}

// GroupMeans returns the mean raw subscale totals per (group, timepoint),
// rounded to two decimals, ordered by group then timepoint.
func GroupMeans(wide []models.WideRecord) ([]GroupMean, error) {
	sums := make(map[cell]*GroupMean)
	var cells []cell
	for i, w := range wide {
		c, err := parseCell(w, i+1)
		if err != nil {
			return nil, err
		}
		gm, ok := sums[c]
		if !ok {
			gm = &GroupMean{Group: c.group, Timepoint: c.timepoint}
			sums[c] = gm
			cells = append(cells, c)
		}
		gm.N++
		for s, total := range w.Totals {
			gm.Means[s] += float64(total)
		}
	}

	sortCells(cells)
	out := make([]GroupMean, 0, len(cells))
	for _, c := range cells {
		gm := *sums[c]
		for s := range gm.Means {
			gm.Means[s] = Round2(gm.Means[s] / float64(gm.N))
		}
		out = append(out, gm)
	}
	return out, nil
}

// Differences returns intervention minus control for every timepoint at
// which both groups have a mean, in timepoint order.
func Differences(means []GroupMean) []Difference {
	byCell := make(map[cell]GroupMean, len(means))
	for _, m := range means {
		byCell[cell{m.Group, m.Timepoint}] = m
	}

	var out []Difference
	for _, tp := range models.AllTimepoints() {
		iv, ok1 := byCell[cell{models.GroupIntervention, tp}]
		ct, ok2 := byCell[cell{models.GroupControl, tp}]
		if !ok1 || !ok2 {
			continue
		}
		d := Difference{Timepoint: tp}
		for s := range d.Delta {
			d.Delta[s] = Round2(iv.Means[s] - ct.Means[s])
		}
		out = append(out, d)
	}
	return out
}

// ItemMeans returns the mean of all item responses per (group, timepoint).
func ItemMeans(wide []models.WideRecord) ([]ItemMean, error) {
	sums := make(map[cell]float64)
	counts := make(map[cell]int)
	var cells []cell
	for i, w := range wide {
		c, err := parseCell(w, i+1)
		if err != nil {
			return nil, err
		}
		if _, ok := counts[c]; !ok {
			cells = append(cells, c)
		}
		for _, v := range w.Items {
			sums[c] += float64(v)
		}
		counts[c] += len(w.Items)
	}

	sortCells(cells)
	out := make([]ItemMean, 0, len(cells))
	for _, c := range cells {
		out = append(out, ItemMean{
			Group:     c.group,
			Timepoint: c.timepoint,
			Mean:      Round2(sums[c] / float64(counts[c])),
		})
	}
	return out, nil
}

// BandCounts tallies long rows per (timepoint, subscale, band). Only
// non-zero counts are returned, in ordinal order.
func BandCounts(long []models.LongRecord) ([]BandCount, error) {
	type key struct {
		tp   models.Timepoint
		s    models.Subscale
		band models.SeverityBand
	}
	counts := make(map[key]int)
	for i, r := range long {
		if !r.Subscale.Valid() {
			return nil, fmt.Errorf("row %d: %w", i+1, &models.UnknownSubscaleError{Label: r.Subscale.Name()})
		}
		if !r.Timepoint.Valid() || !r.Band.Valid() {
			return nil, &models.SchemaError{Row: i + 1, Reason: "invalid timepoint or band"}
		}
		counts[key{r.Timepoint, r.Subscale, r.Band}]++
	}

	var out []BandCount
	for _, tp := range models.AllTimepoints() {
		for _, s := range models.AllSubscales() {
			for _, b := range models.AllSeverityBands() {
				if n := counts[key{tp, s, b}]; n > 0 {
					out = append(out, BandCount{Timepoint: tp, Subscale: s, Band: b, Count: n})
				}
			}
		}
	}
	return out, nil
}

// Report bundles every summary computed for one run.
type Report struct {
	GroupMeans  []GroupMean  `json:"group_means"`
	Differences []Difference `json:"differences"`
	ItemMeans   []ItemMean   `json:"item_means"`
	BandCounts  []BandCount  `json:"band_counts,omitempty"`
}

// Build computes a Report. long may be nil, in which case band counts are omitted.
func Build(wide []models.WideRecord, long []models.LongRecord) (*Report, error) {
	means, err := GroupMeans(wide)
	if err != nil {
		return nil, fmt.Errorf("group means: %w", err)
	}
	items, err := ItemMeans(wide)
	if err != nil {
		return nil, fmt.Errorf("item means: %w", err)
	}
	r := &Report{
		GroupMeans:  means,
		Differences: Differences(means),
		ItemMeans:   items,
	}
	if long != nil {
		if r.BandCounts, err = BandCounts(long); err != nil {
			return nil, fmt.Errorf("band counts: %w", err)
		}
	}
	return r, nil
}
