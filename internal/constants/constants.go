// Package constants provides named constants used throughout the dasstrial codebase.
// This centralizes instrument dimensions and simulation defaults.
package constants

// DASS-21 instrument dimensions
const (
	// NumQuestions is the number of items on the DASS-21 questionnaire.
	NumQuestions = 21

	// NumSubscales is the number of subscales the items partition into.
	NumSubscales = 3

	// ItemsPerSubscale is the number of items summed into each subscale total.
	ItemsPerSubscale = 7

	// MaxItemScore is the highest response value for a single item (range 0-3).
	MaxItemScore = 3

	// MaxRawTotal is the highest possible pre-scaling subscale total.
	MaxRawTotal = ItemsPerSubscale * MaxItemScore

	// ScaleFactor converts a 21-item subscale total to the 42-item DASS convention.
	ScaleFactor = 2

	// MaxScore is the highest possible scaled subscale score.
	MaxScore = MaxRawTotal * ScaleFactor
)

// Simulation defaults, matching the reference trial design.
const (
	// DefaultSeed is the RNG seed used when none is configured.
	DefaultSeed = 42

	// DefaultParticipantsPerGroup is the cohort size for each arm.
	DefaultParticipantsPerGroup = 20

	// DefaultTreatmentEffect is the proportional reduction applied to
	// intervention-group items after baseline.
	DefaultTreatmentEffect = 0.20

	// WeightTolerance is the allowed deviation of the response weights' sum from 1.
	WeightTolerance = 1e-9
)

// DefaultResponseWeights returns the categorical distribution over item values 0..3.
// A fresh slice is returned on every call so callers may modify it.
func DefaultResponseWeights() []float64 {
	return []float64{0.1, 0.2, 0.4, 0.3}
}

// File and directory names
const (
	// DataDirName is the per-project directory holding the run archive and traces.
	DataDirName = ".dasstrial"

	// ArchiveFileName is the SQLite run archive inside DataDirName.
	ArchiveFileName = "runs.db"

	// TraceFileName is the JSONL pipeline trace written at debug level.
	TraceFileName = "pipeline.jsonl"

	// AuditFileName is the JSONL log of tool server calls inside DataDirName.
	AuditFileName = "audit.jsonl"

	// DefaultWideFile is the simulated item-level CSV.
	DefaultWideFile = "simulated_dass21_full.csv"

	// DefaultLongFile is the classified long-form CSV.
	DefaultLongFile = "dass21_long.csv"

	// DefaultChartFile is the rendered trajectory page.
	DefaultChartFile = "trajectories.html"

	// DefaultOutputDir is where pipeline outputs are written, relative to the project root.
	DefaultOutputDir = "data"

	// DefaultChartTitle is the heading used for rendered trajectories.
	DefaultChartTitle = "DASS-21 trajectories"
)

// BackupDirName is the directory under DataDirName holding archive backups.
const BackupDirName = "backups"

// DefaultBackupKeep is how many archive backups "runs backup" keeps.
const DefaultBackupKeep = 10
