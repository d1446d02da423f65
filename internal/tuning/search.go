package tuning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/evaluate"
	"github.com/paveg/noshow/internal/forest"
	"github.com/paveg/noshow/internal/logging"
	"github.com/paveg/noshow/internal/parallel"
	"github.com/sirupsen/logrus"
)

// Model is a fitted classifier the search can score.
type Model interface {
	PredictAll(x [][]float64) []int
}

// Trainer fits one model. The search calls it concurrently.
type Trainer func(ctx context.Context, d *dataset.Dataset, p forest.Params) (Model, error)

// ForestTrainer fits random forests sequentially within each job; the
// search already runs jobs in parallel.
func ForestTrainer() Trainer {
	return func(ctx context.Context, d *dataset.Dataset, p forest.Params) (Model, error) {
		f, err := forest.Fit(ctx, d, p, nil)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// CandidateResult is the cross-validation outcome of one parameter set.
type CandidateResult struct {
	Params     forest.Params `json:"params"`
	FoldScores []float64     `json:"fold_scores"`
	Mean       float64       `json:"mean"`
	Std        float64       `json:"std"`
	Rank       int           `json:"rank"`
}

// Result is the outcome of a grid search.
type Result struct {
	Scoring    Scoring           `json:"-"`
	Best       forest.Params     `json:"best_params"`
	BestIndex  int               `json:"best_index"`
	BestScore  float64           `json:"best_score"`
	Candidates []CandidateResult `json:"candidates"`
	Folds      int               `json:"folds"`
	Fits       int               `json:"fits"`
	Duration   time.Duration     `json:"duration"`
	BestModel  Model             `json:"-"` // refit on all rows when Search.Refit is set
}

// Search is an exhaustive grid search with stratified k-fold validation.
type Search struct {
	Grid     Grid
	Base     forest.Params // non-grid parameters shared by every candidate
	Folds    int
	Scoring  Scoring
	Positive int  // class scored by F1/recall
	Refit    bool // fit the best candidate on all rows afterwards
	Trainer  Trainer
	Pool     *parallel.WorkerPool
	Logger   logrus.FieldLogger
}

type job struct {
	candidate int
	fold      int
}

// Run evaluates every candidate on every fold. The best candidate has the
// highest mean score; ties go to the earlier candidate in grid order. A fold
// whose score is undefined counts as 0.
func (s *Search) Run(ctx context.Context, d *dataset.Dataset) (*Result, error) {
	start := time.Now()
	candidates, err := s.Grid.Candidates(s.Base)
	if err != nil {
		return nil, err
	}
	if s.Scoring != F1 && s.Scoring != Recall {
		return nil, errors.NewValueError("GridSearch", fmt.Sprintf("unknown scoring %d", int(s.Scoring)))
	}
	folds, err := dataset.StratifiedKFold(d.Y, s.Folds)
	if err != nil {
		return nil, err
	}

	trainer := s.Trainer
	if trainer == nil {
		trainer = ForestTrainer()
	}
	pool := s.Pool
	if pool == nil {
		pool = parallel.NewWorkerPool(0)
		defer pool.Close()
	}
	log := s.Logger
	if log == nil {
		log = logging.Discard()
	}

	log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"folds":      len(folds),
		"fits":       len(candidates) * len(folds),
		"scoring":    s.Scoring.String(),
	}).Info("grid search started")

	jobs := make([]job, 0, len(candidates)*len(folds))
	for c := range candidates {
		for f := range folds {
			jobs = append(jobs, job{candidate: c, fold: f})
		}
	}

	var fits int64
	scores, err := parallel.Map(ctx, pool, jobs, func(ctx context.Context, _ int, j job) (float64, error) {
		fold := folds[j.fold]
		model, err := trainer(ctx, d.Subset(fold.Train), candidates[j.candidate])
		if err != nil {
			return 0, err
		}
		atomic.AddInt64(&fits, 1)
		test := d.Subset(fold.Test)
		return s.score(test.Y, model.PredictAll(test.X)), nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Scoring:    s.Scoring,
		Candidates: make([]CandidateResult, len(candidates)),
		Folds:      len(folds),
		Fits:       int(atomic.LoadInt64(&fits)),
	}
	for c, p := range candidates {
		foldScores := scores[c*len(folds) : (c+1)*len(folds)]
		mean, std := meanStd(foldScores)
		result.Candidates[c] = CandidateResult{
			Params:     p,
			FoldScores: append([]float64(nil), foldScores...),
			Mean:       mean,
			Std:        std,
		}
		if c == 0 || mean > result.BestScore {
			result.BestIndex = c
			result.BestScore = mean
		}
		log.WithFields(logrus.Fields{
			"params": p.String(),
			"mean":   mean,
			"std":    std,
		}).Debug("candidate scored")
	}
	rank(result.Candidates)
	result.Best = candidates[result.BestIndex]

	if s.Refit {
		model, err := trainer(ctx, d, result.Best)
		if err != nil {
			return nil, err
		}
		result.BestModel = model
	}
	result.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"best_params": result.Best.String(),
		"best_score":  result.BestScore,
		"fits":        result.Fits,
		"duration":    result.Duration.String(),
	}).Info("grid search finished")

	return result, nil
}

func (s *Search) score(yTrue, yPred []int) float64 {
	var v float64
	if s.Scoring == Recall {
		v = evaluate.RecallScore(yTrue, yPred, s.Positive)
	} else {
		v = evaluate.F1Score(yTrue, yPred, s.Positive)
	}
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

// rank assigns 1 to the best mean; equal means share the lowest rank.
func rank(candidates []CandidateResult) {
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Mean > candidates[order[b]].Mean
	})
	for pos, idx := range order {
		if pos > 0 && candidates[idx].Mean == candidates[order[pos-1]].Mean {
			candidates[idx].Rank = candidates[order[pos-1]].Rank
			continue
		}
		candidates[idx].Rank = pos + 1
	}
}

// Summary renders the search outcome on a few lines.
func (r *Result) Summary() string {
	return fmt.Sprintf("best params: %s\nbest cv %s: %.4f (%d candidates x %d folds = %d fits)",
		r.Best, r.Scoring, r.BestScore, len(r.Candidates), r.Folds, r.Fits)
}
