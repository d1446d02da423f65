package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/paveg/noshow/internal/charts"
	"github.com/paveg/noshow/internal/clean"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/evaluate"
	"github.com/paveg/noshow/internal/forest"
	memtrack "github.com/paveg/noshow/internal/memory"
	"github.com/paveg/noshow/internal/monitoring"
	"github.com/paveg/noshow/internal/tuning"
)

// Strategy names.
const (
	StrategyBaseline    = "baseline"
	StrategyWeighted    = "class_weighted"
	StrategySMOTE       = "smote"
	StrategyOversampled = "oversampled"
	StrategyTuned       = "tuned"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Summary describes the raw table before cleaning.
type Summary struct {
	Rows           int                    `json:"rows"`
	Columns        int                    `json:"columns"`
	NullCounts     []dataframe.NullCount  `json:"null_counts"`
	DuplicateRows  int                    `json:"duplicate_rows"`
	UniquePatients int                    `json:"unique_patients"`
	Labels         []dataframe.ValueCount `json:"labels"`
}

// SplitSummary describes the modelling rows and the train/test partition.
type SplitSummary struct {
	DroppedRows     int     `json:"dropped_rows"` // null feature or label
	TrainRows       int     `json:"train_rows"`
	TestRows        int     `json:"test_rows"`
	TrainNoShow     float64 `json:"train_no_show"`
	TestNoShow      float64 `json:"test_no_show"`
	OversampledRows int     `json:"oversampled_rows"`
}

// StrategyResult is one evaluated model.
type StrategyResult struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Params      string               `json:"params"`
	Evaluation  *evaluate.Evaluation `json:"evaluation"`

	model *forest.Forest
}

// Model returns the fitted forest behind the result.
func (s *StrategyResult) Model() *forest.Forest {
	return s.model
}

// Report collects everything a run computed.
type Report struct {
	RunID        string                     `json:"run_id"`
	Dataset      string                     `json:"dataset"`
	Started      time.Time                  `json:"started"`
	Duration     time.Duration              `json:"duration"`
	Summary      Summary                    `json:"summary"`
	Cleaning     clean.Stats                `json:"cleaning"`
	Split        SplitSummary               `json:"split"`
	Strategies   []*StrategyResult          `json:"strategies"`
	GridSearch   *tuning.Result             `json:"grid_search"`
	RecallSearch *tuning.Result             `json:"recall_search,omitempty"`
	Importances  []evaluate.Importance      `json:"importances"`
	Sample       *evaluate.SamplePrediction `json:"sample_prediction"`
	Charts       []*charts.Chart            `json:"charts,omitempty"`
	Stages       []monitoring.StageMetrics  `json:"stages,omitempty"`
	StageSummary monitoring.MetricsSummary  `json:"stage_summary"`
	Memory       memtrack.Stats             `json:"arrow_memory"`
}

// Strategy looks up a strategy result by name.
func (r *Report) Strategy(name string) (*StrategyResult, bool) {
	for _, s := range r.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Write renders the report as text or JSON. Charts are drawn with renderer
// in text mode and emitted as data in JSON mode.
func (r *Report) Write(w io.Writer, format string, renderer charts.Renderer) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatText:
		return r.writeText(w, renderer)
	default:
		return errors.NewConfigError("report_format", fmt.Sprintf("must be text or json, got %q", format))
	}
}

func (r *Report) writeText(w io.Writer, renderer charts.Renderer) error {
	var b strings.Builder
	section := func(title string) {
		fmt.Fprintf(&b, "\n== %s ==\n", title)
	}

	fmt.Fprintf(&b, "run %s on %s\n", r.RunID, r.Dataset)

	section("Dataset")
	fmt.Fprintf(&b, "shape: %d rows x %d columns\n", r.Summary.Rows, r.Summary.Columns)
	fmt.Fprintf(&b, "duplicate rows: %d\n", r.Summary.DuplicateRows)
	fmt.Fprintf(&b, "unique patients: %d\n", r.Summary.UniquePatients)
	b.WriteString("missing values:")
	for _, n := range r.Summary.NullCounts {
		if n.Nulls > 0 {
			fmt.Fprintf(&b, " %s=%d", n.Column, n.Nulls)
		}
	}
	b.WriteString("\nlabels:")
	for _, v := range r.Summary.Labels {
		fmt.Fprintf(&b, " %s=%d (%.1f%%)", v.Value, v.Count, 100*v.Proportion)
	}
	b.WriteString("\n")

	section("Cleaning")
	c := r.Cleaning
	fmt.Fprintf(&b, "rows: %d -> %d\n", c.InputRows, c.OutputRows)
	fmt.Fprintf(&b, "negative age removed: %d\n", c.NegativeAge)
	fmt.Fprintf(&b, "unknown gender: %d, unknown label: %d, dropped: %d\n",
		c.UnknownGender, c.UnknownNoShow, c.DroppedUnknown)
	fmt.Fprintf(&b, "missing scheduled days: %d, unparsed appointment days: %d, missing waiting days: %d\n",
		c.MissingScheduled, c.UnparsedAppointments, c.MissingWaitingDays)

	section("Split")
	s := r.Split
	if s.DroppedRows > 0 {
		fmt.Fprintf(&b, "rows skipped for missing features: %d\n", s.DroppedRows)
	}
	fmt.Fprintf(&b, "train: %d rows (%.1f%% no-show)\n", s.TrainRows, 100*s.TrainNoShow)
	fmt.Fprintf(&b, "test: %d rows (%.1f%% no-show)\n", s.TestRows, 100*s.TestNoShow)
	fmt.Fprintf(&b, "oversampled train: %d rows\n", s.OversampledRows)

	if r.GridSearch != nil {
		section("Grid search")
		b.WriteString(r.GridSearch.Summary())
		b.WriteString("\n")
	}
	if r.RecallSearch != nil {
		section("Recall-scored grid search (informational)")
		b.WriteString(r.RecallSearch.Summary())
		b.WriteString("\n")
	}

	for _, st := range r.Strategies {
		section("Strategy: " + st.Name)
		fmt.Fprintf(&b, "%s\n%s\n\n", st.Description, st.Params)
		b.WriteString(st.Evaluation.Report.String())
		b.WriteString("\n")
		b.WriteString(st.Evaluation.Report.Confusion.String())
		if st.Evaluation.ROCAUCError != "" {
			fmt.Fprintf(&b, "roc auc: undefined (%s)\n", st.Evaluation.ROCAUCError)
		} else {
			fmt.Fprintf(&b, "roc auc: %.4f\n", st.Evaluation.ROCAUC)
		}
	}

	if len(r.Importances) > 0 {
		section("Feature importances")
		for _, imp := range r.Importances {
			fmt.Fprintf(&b, "%-16s %.4f\n", imp.Feature, imp.Score)
		}
	}

	if r.Sample != nil {
		section("Sample prediction")
		b.WriteString(r.Sample.String())
		b.WriteString("\n")
	}

	if len(r.Stages) > 0 {
		section("Stage timings")
		b.WriteString(monitoring.FormatTable(r.Stages))
		fmt.Fprintf(&b, "total %s, slowest %s\n", r.Duration.Round(time.Millisecond), r.StageSummary.Slowest)
	}
	fmt.Fprintf(&b, "arrow memory: peak %d bytes in %d allocations\n", r.Memory.Peak, r.Memory.Allocations)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.NewIOError("WriteReport", "report", err)
	}

	if renderer == nil || len(r.Charts) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n== Charts ==\n"); err != nil {
		return errors.NewIOError("WriteReport", "report", err)
	}
	for _, c := range r.Charts {
		if err := renderer.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}
