package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/ratelimit"
	"github.com/nvandessel/dasstrial/internal/table"
)

func TestHandleDassClassify(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		subscale string
		score    float64
		wantName string
		wantBand string
		wantRank int
	}{
		{"Depression", 9, "Depression", "Normal", 0},
		{"DASS_Depression", 10, "Depression", "Mild", 1},
		{"Anxiety", 14, "Anxiety", "Moderate", 2},
		{"DASS_Anxiety", 19.5, "Anxiety", "Extremely Severe", 4},
		{"Stress", 33, "Stress", "Severe", 3},
		{"Stress", 0, "Stress", "Normal", 0},
		{"DASS_Stress", 42, "Stress", "Extremely Severe", 4},
	}

	for _, tt := range tests {
		t.Run(tt.subscale, func(t *testing.T) {
			result, out, err := server.handleDassClassify(ctx, nil, DassClassifyInput{Score: tt.score, Subscale: tt.subscale})
			if err != nil {
				t.Fatalf("handleDassClassify failed: %v", err)
			}
			if result != nil {
				t.Error("Expected nil result (SDK auto-populates)")
			}
			if out.Subscale != tt.wantName || out.Band != tt.wantBand || out.BandRank != tt.wantRank {
				t.Errorf("classify(%v, %s) = %+v, want %s/%s/%d",
					tt.score, tt.subscale, out, tt.wantName, tt.wantBand, tt.wantRank)
			}
		})
	}
}

func TestHandleDassClassify_UnknownSubscale(t *testing.T) {
	server, _ := setupTestServer(t)

	_, _, err := server.handleDassClassify(context.Background(), nil, DassClassifyInput{Score: 12, Subscale: "Fatigue"})
	var unknown *models.UnknownSubscaleError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownSubscaleError", err)
	}
	if unknown.Label != "Fatigue" {
		t.Errorf("Label = %q, want Fatigue", unknown.Label)
	}
}

func TestHandleDassSimulate_Defaults(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleDassSimulate(context.Background(), nil, DassSimulateInput{})
	if err != nil {
		t.Fatalf("handleDassSimulate failed: %v", err)
	}

	if out.Seed != 42 {
		t.Errorf("Seed = %d, want 42", out.Seed)
	}
	if out.WideRows != 200 || out.LongRows != 600 {
		t.Errorf("rows = %d/%d, want 200/600", out.WideRows, out.LongRows)
	}
	if len(out.GroupMeans) != 10 {
		t.Errorf("len(GroupMeans) = %d, want 10", len(out.GroupMeans))
	}
	if len(out.Differences) != 5 {
		t.Errorf("len(Differences) = %d, want 5", len(out.Differences))
	}
	total := 0
	for _, c := range out.BandCounts {
		total += c.Count
	}
	if total != out.LongRows {
		t.Errorf("band counts sum to %d, want %d", total, out.LongRows)
	}
	if out.RunID != "" || out.Output != "" {
		t.Errorf("unexpected side effects: %+v", out)
	}
	if _, ok := out.GroupMeans[0].Means["DASS_Anxiety"]; !ok {
		t.Errorf("group means not keyed by column label: %v", out.GroupMeans[0].Means)
	}
}

func TestHandleDassSimulate_Deterministic(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	seed := uint64(7)
	args := DassSimulateInput{ParticipantsPerGroup: 4, Seed: &seed}

	_, a, err := server.handleDassSimulate(ctx, nil, args)
	if err != nil {
		t.Fatal(err)
	}
	_, b, err := server.handleDassSimulate(ctx, nil, args)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.GroupMeans {
		for k, v := range a.GroupMeans[i].Means {
			if b.GroupMeans[i].Means[k] != v {
				t.Fatalf("group mean %d %s differs: %v vs %v", i, k, v, b.GroupMeans[i].Means[k])
			}
		}
	}
}

func TestHandleDassSimulate_WritesOutput(t *testing.T) {
	server, tmpDir := setupTestServer(t)

	_, out, err := server.handleDassSimulate(context.Background(), nil, DassSimulateInput{
		ParticipantsPerGroup: 3,
		Output:               filepath.Join("results", "long.csv"),
	})
	if err != nil {
		t.Fatalf("handleDassSimulate failed: %v", err)
	}
	if !strings.HasSuffix(out.Output, filepath.Join("results", "long.csv")) {
		t.Errorf("Output = %q", out.Output)
	}

	long, err := table.ReadLongFile(filepath.Join(tmpDir, "results", "long.csv"))
	if err != nil {
		t.Fatalf("reading written table: %v", err)
	}
	if len(long) != out.LongRows {
		t.Errorf("written rows = %d, want %d", len(long), out.LongRows)
	}
}

func TestHandleDassSimulate_OutputOutsideRoot(t *testing.T) {
	server, tmpDir := setupTestServer(t)

	_, _, err := server.handleDassSimulate(context.Background(), nil, DassSimulateInput{
		ParticipantsPerGroup: 3,
		Output:               "../escape.csv",
	})
	if err == nil {
		t.Fatal("expected error for output outside the root")
	}
	if !strings.Contains(err.Error(), "outside the project root") {
		t.Errorf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(tmpDir), "escape.csv")); !os.IsNotExist(statErr) {
		t.Error("file written outside the root")
	}
}

func TestHandleDassSimulate_InvalidParameters(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	badEffect := 1.5

	tests := []struct {
		name string
		args DassSimulateInput
	}{
		{"negative participants", DassSimulateInput{ParticipantsPerGroup: -1}},
		{"too many participants", DassSimulateInput{ParticipantsPerGroup: maxParticipantsPerGroup + 1}},
		{"effect out of range", DassSimulateInput{TreatmentEffect: &badEffect}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleDassSimulate(ctx, nil, tt.args)
			var ce *models.ConfigurationError
			if !errors.As(err, &ce) {
				t.Errorf("error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestHandleDassSimulate_DefaultsNotShared(t *testing.T) {
	server, _ := setupTestServer(t)
	before := append([]float64(nil), server.defaults.Weights...)

	if _, _, err := server.handleDassSimulate(context.Background(), nil, DassSimulateInput{ParticipantsPerGroup: 2}); err != nil {
		t.Fatal(err)
	}
	for i, w := range server.defaults.Weights {
		if w != before[i] {
			t.Fatalf("defaults.Weights changed: %v -> %v", before, server.defaults.Weights)
		}
	}
}

func TestHandleDassRuns(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, empty, err := server.handleDassRuns(ctx, nil, DassRunsInput{})
	if err != nil {
		t.Fatalf("handleDassRuns failed: %v", err)
	}
	if empty.Count != 0 || empty.Runs == nil {
		t.Errorf("empty archive = %+v, want zero runs and a non-nil slice", empty)
	}

	_, sim, err := server.handleDassSimulate(ctx, nil, DassSimulateInput{ParticipantsPerGroup: 2, Archive: true})
	if err != nil {
		t.Fatal(err)
	}
	if sim.RunID == "" {
		t.Fatal("archived simulation has no run ID")
	}

	_, out, err := server.handleDassRuns(ctx, nil, DassRunsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	run := out.Runs[0]
	if run.ID != sim.RunID || run.ParticipantsPerGroup != 2 || run.Rows != sim.LongRows {
		t.Errorf("run = %+v", run)
	}
	if len(run.Timepoints) != 5 || run.Timepoints[0] != "baseline" {
		t.Errorf("Timepoints = %v", run.Timepoints)
	}
}

func TestHandlers_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	server.toolLimiters = ratelimit.ToolLimiters{
		ratelimit.ToolClassify: ratelimit.NewLimiter(ratelimit.Budget{Burst: 1}),
	}
	ctx := context.Background()
	args := DassClassifyInput{Score: 5, Subscale: "Stress"}

	if _, _, err := server.handleDassClassify(ctx, nil, args); err != nil {
		t.Fatalf("first call rejected: %v", err)
	}
	_, _, err := server.handleDassClassify(ctx, nil, args)
	var ee *ratelimit.ExceededError
	if !errors.As(err, &ee) || ee.Tool != ratelimit.ToolClassify {
		t.Errorf("second call error = %v, want ExceededError", err)
	}
}
