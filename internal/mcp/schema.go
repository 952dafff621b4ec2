package mcp

import "time"

// DassClassifyInput defines the input for the dass_classify tool.
type DassClassifyInput struct {
	Score    float64 `json:"score" jsonschema:"scaled subscale score on the 0-42 range"`
	Subscale string  `json:"subscale" jsonschema:"subscale name or column label, e.g. Depression or DASS_Depression"`
}

// DassClassifyOutput defines the output for the dass_classify tool.
type DassClassifyOutput struct {
	Subscale string  `json:"subscale" jsonschema:"canonical subscale name"`
	Score    float64 `json:"score" jsonschema:"the score that was classified"`
	Band     string  `json:"band" jsonschema:"severity band label"`
	BandRank int     `json:"band_rank" jsonschema:"ordinal rank of the band, 0 is Normal and 4 is Extremely Severe"`
}

// DassSimulateInput defines the input for the dass_simulate tool. Omitted
// fields take the configured defaults.
type DassSimulateInput struct {
	ParticipantsPerGroup int      `json:"participants_per_group,omitempty" jsonschema:"participants in each arm"`
	Seed                 *uint64  `json:"seed,omitempty" jsonschema:"random seed"`
	TreatmentEffect      *float64 `json:"treatment_effect,omitempty" jsonschema:"proportional reduction of intervention items after baseline, in [0,1]"`
	Output               string   `json:"output,omitempty" jsonschema:"path inside the project root that receives the long CSV"`
	Archive              bool     `json:"archive,omitempty" jsonschema:"store the run in the project archive"`
}

// DassSimulateOutput defines the output for the dass_simulate tool.
type DassSimulateOutput struct {
	RunID       string           `json:"run_id,omitempty" jsonschema:"archive ID when archive was requested"`
	Seed        uint64           `json:"seed" jsonschema:"seed actually used"`
	WideRows    int              `json:"wide_rows" jsonschema:"rows in the wide table"`
	LongRows    int              `json:"long_rows" jsonschema:"rows in the long table"`
	Output      string           `json:"output,omitempty" jsonschema:"resolved path of the written long CSV"`
	GroupMeans  []GroupMeanItem  `json:"group_means" jsonschema:"mean pre-scaling totals per group and timepoint"`
	Differences []DifferenceItem `json:"differences" jsonschema:"intervention minus control per timepoint"`
	BandCounts  []BandCountItem  `json:"band_counts" jsonschema:"rows per timepoint, subscale and band"`
	Message     string           `json:"message" jsonschema:"human-readable summary"`
}

// GroupMeanItem is one group mean row keyed by subscale column label.
type GroupMeanItem struct {
	Group     string             `json:"group"`
	Timepoint string             `json:"timepoint"`
	N         int                `json:"n"`
	Means     map[string]float64 `json:"means"`
}

// DifferenceItem is one intervention-minus-control row.
type DifferenceItem struct {
	Timepoint string             `json:"timepoint"`
	Delta     map[string]float64 `json:"delta"`
}

// BandCountItem counts long rows in one band.
type BandCountItem struct {
	Timepoint string `json:"timepoint"`
	Subscale  string `json:"subscale"`
	Band      string `json:"band"`
	Count     int    `json:"count"`
}

// DassRunsInput defines the input for the dass_runs tool.
type DassRunsInput struct{}

// DassRunsOutput defines the output for the dass_runs tool.
type DassRunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"archived runs, newest first"`
	Count int           `json:"count" jsonschema:"number of runs"`
}

// RunListItem provides a list view of an archived run.
type RunListItem struct {
	ID                   string    `json:"id"`
	ParticipantsPerGroup int       `json:"participants_per_group"`
	Seed                 uint64    `json:"seed"`
	TreatmentEffect      float64   `json:"treatment_effect"`
	Timepoints           []string  `json:"timepoints"`
	Rows                 int       `json:"rows"`
	CreatedAt            time.Time `json:"created_at"`
}
