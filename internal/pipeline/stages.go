package pipeline

import (
	"github.com/paveg/noshow/internal/charts"
	"github.com/paveg/noshow/internal/clean"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/evaluate"
	"github.com/paveg/noshow/internal/forest"
	"github.com/paveg/noshow/internal/io"
	"github.com/paveg/noshow/internal/resample"
	"github.com/paveg/noshow/internal/tuning"
	"github.com/sirupsen/logrus"
)

// Stage names as they appear in logs and metrics.
const (
	StageLoad             = "load"
	StageSummarize        = "summarize"
	StageClean            = "clean"
	StageExport           = "export"
	StageVisualize        = "visualize"
	StageEncode           = "encode"
	StageSplit            = "split"
	StageBaseline         = "train_baseline"
	StageWeighted         = "train_weighted"
	StageOversample       = "oversample"
	StageSMOTE            = "train_smote"
	StageGridSearch       = "grid_search"
	StageRecallSearch     = "recall_search"
	StageRefitOversampled = "refit_oversampled"
	StageRefitFinal       = "refit_final"
	StageEvaluate         = "evaluate"
	StageSample           = "sample"
	StageModelCharts      = "model_charts"
)

func (r *run) load() (*dataframe.DataFrame, error) {
	var df *dataframe.DataFrame
	err := r.stage(StageLoad, func() (int, error) {
		var err error
		df, err = io.ReadCSVFile(r.cfg.DatasetPath, io.AppointmentSchema(), io.DefaultCSVOptions(), r.mem)
		if err != nil {
			return 0, err
		}
		return df.Len(), nil
	})
	return df, err
}

func (r *run) summarize(df *dataframe.DataFrame) error {
	return r.stage(StageSummarize, func() (int, error) {
		patients, err := df.NUnique(io.ColPatientID)
		if err != nil {
			return 0, err
		}
		labels, err := df.ValueCounts(io.ColNoShow)
		if err != nil {
			return 0, err
		}
		r.report.Summary = Summary{
			Rows:           df.Len(),
			Columns:        df.Width(),
			NullCounts:     df.NullCounts(),
			DuplicateRows:  df.DuplicateRows(),
			UniquePatients: patients,
			Labels:         labels,
		}
		r.log.WithFields(logrus.Fields{
			"rows":       df.Len(),
			"columns":    df.Width(),
			"duplicates": r.report.Summary.DuplicateRows,
			"patients":   patients,
		}).Info("dataset summary")
		return df.Len(), nil
	})
}

func (r *run) clean(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	var cleaned *dataframe.DataFrame
	err := r.stage(StageClean, func() (int, error) {
		policy, err := clean.ParsePolicy(r.cfg.UnknownCategory)
		if err != nil {
			return 0, err
		}
		result, err := clean.Clean(df, clean.Options{UnknownCategory: policy}, r.mem)
		if err != nil {
			return 0, err
		}
		cleaned = result.Frame
		r.report.Cleaning = result.Stats
		r.log.WithFields(logrus.Fields{
			"negative_age":    result.Stats.NegativeAge,
			"unknown_gender":  result.Stats.UnknownGender,
			"unknown_no_show": result.Stats.UnknownNoShow,
			"dropped_unknown": result.Stats.DroppedUnknown,
			"policy":          policy,
		}).Info("table cleaned")
		return result.Stats.OutputRows, nil
	})
	return cleaned, err
}

func (r *run) export(df *dataframe.DataFrame) error {
	if r.cfg.ExportCleaned == "" {
		return nil
	}
	return r.stage(StageExport, func() (int, error) {
		if err := io.WriteFile(r.cfg.ExportCleaned, df); err != nil {
			return 0, err
		}
		r.log.WithField("path", r.cfg.ExportCleaned).Info("cleaned table exported")
		return df.Len(), nil
	})
}

func (r *run) visualize(df *dataframe.DataFrame) error {
	if !r.cfg.Charts {
		return nil
	}
	return r.stage(StageVisualize, func() (int, error) {
		views, err := charts.DataViews(df)
		if err != nil {
			return 0, err
		}
		r.report.Charts = append(r.report.Charts, views...)
		return df.Len(), nil
	})
}

func (r *run) encode(df *dataframe.DataFrame) (*dataset.Dataset, error) {
	var d *dataset.Dataset
	err := r.stage(StageEncode, func() (int, error) {
		var dropped int
		var err error
		d, dropped, err = dataset.FromFrame(df, dataset.DefaultFeatures, dataset.DefaultLabel)
		if err != nil {
			return 0, err
		}
		r.report.Split.DroppedRows = dropped
		if dropped > 0 {
			r.log.WithField("dropped", dropped).Warn("rows with missing features skipped")
		}
		return d.Len(), nil
	})
	return d, err
}

func (r *run) split(d *dataset.Dataset) (*dataset.Split, error) {
	var split *dataset.Split
	err := r.stage(StageSplit, func() (int, error) {
		var err error
		split, err = dataset.StratifiedSplit(d, r.cfg.TestSize, r.cfg.Seed)
		if err != nil {
			return 0, err
		}
		r.report.Split.TrainRows = split.Train.Len()
		r.report.Split.TestRows = split.Test.Len()
		r.report.Split.TrainNoShow = split.Train.Proportion(evaluate.Positive)
		r.report.Split.TestNoShow = split.Test.Proportion(evaluate.Positive)
		return d.Len(), nil
	})
	return split, err
}

// train fits and evaluates the three strategies. The sample prediction and
// the importance view use the final tuned model.
func (r *run) train(split *dataset.Split) error {
	base := forest.DefaultParams()
	base.Seed = r.cfg.Seed

	baselineParams := base
	baselineParams.NEstimators = r.cfg.BaselineTrees
	baseline, err := r.fit(StageBaseline, split.Train, baselineParams)
	if err != nil {
		return err
	}

	weightedParams := baselineParams
	weightedParams.ClassWeight = forest.Balanced
	weighted, err := r.fit(StageWeighted, split.Train, weightedParams)
	if err != nil {
		return err
	}

	oversampled, err := r.oversample(split.Train)
	if err != nil {
		return err
	}
	smote, err := r.fit(StageSMOTE, oversampled, baselineParams)
	if err != nil {
		return err
	}
	search, err := r.search(StageGridSearch, tuning.F1, oversampled, base)
	if err != nil {
		return err
	}
	r.report.GridSearch = search
	if r.cfg.RecallSearch {
		// Recall is searched over class-weighted forests on the original
		// training split.
		weightedBase := base
		weightedBase.ClassWeight = forest.Balanced
		recall, err := r.search(StageRecallSearch, tuning.Recall, split.Train, weightedBase)
		if err != nil {
			return err
		}
		r.report.RecallSearch = recall
	}

	tunedOversampled, err := r.fit(StageRefitOversampled, oversampled, search.Best)
	if err != nil {
		return err
	}
	tuned, err := r.fit(StageRefitFinal, split.Train, search.Best)
	if err != nil {
		return err
	}

	strategies := []*StrategyResult{
		{Name: StrategyBaseline, Description: "Random forest on the imbalanced training set", model: baseline},
		{Name: StrategyWeighted, Description: "Random forest with balanced class weights", model: weighted},
		{Name: StrategySMOTE, Description: "Random forest on the SMOTE-balanced training set", model: smote},
		{Name: StrategyOversampled, Description: "Tuned random forest fitted on the SMOTE-balanced training set", model: tunedOversampled},
		{Name: StrategyTuned, Description: "Tuned random forest refitted on the original training set", model: tuned},
	}
	if err := r.evaluate(strategies, split.Test); err != nil {
		return err
	}
	r.report.Strategies = strategies
	r.report.Importances = strategies[len(strategies)-1].Evaluation.Importances

	if err := r.sample(tuned, split.Test); err != nil {
		return err
	}
	return r.modelCharts(strategies)
}

func (r *run) fit(stage string, d *dataset.Dataset, p forest.Params) (*forest.Forest, error) {
	var model *forest.Forest
	err := r.stage(stage, func() (int, error) {
		var err error
		model, err = forest.Fit(r.ctx, d, p, r.pool)
		if err != nil {
			return 0, err
		}
		r.log.WithFields(logrus.Fields{
			"params": p.String(),
			"rows":   d.Len(),
		}).Debug(model.String())
		return d.Len(), nil
	})
	return model, err
}

func (r *run) oversample(train *dataset.Dataset) (*dataset.Dataset, error) {
	var balanced *dataset.Dataset
	err := r.stage(StageOversample, func() (int, error) {
		var err error
		balanced, err = resample.SMOTE(r.ctx, train, r.cfg.SMOTENeighbors, r.cfg.Seed, r.pool)
		if err != nil {
			return 0, err
		}
		r.report.Split.OversampledRows = balanced.Len()
		r.log.WithFields(logrus.Fields{
			"before": train.Len(),
			"after":  balanced.Len(),
		}).Info("training set oversampled")
		return balanced.Len(), nil
	})
	return balanced, err
}

func (r *run) search(stage string, scoring tuning.Scoring, d *dataset.Dataset, base forest.Params) (*tuning.Result, error) {
	var result *tuning.Result
	err := r.stage(stage, func() (int, error) {
		s := &tuning.Search{
			Grid:     tuning.Grid(r.cfg.Grid),
			Base:     base,
			Folds:    r.cfg.CVFolds,
			Scoring:  scoring,
			Positive: evaluate.Positive,
			Pool:     r.pool,
			Logger:   r.log.WithField("stage", stage),
		}
		var err error
		result, err = s.Run(r.ctx, d)
		if err != nil {
			return 0, err
		}
		r.log.WithFields(logrus.Fields{
			"scoring": scoring.String(),
			"best":    result.Best.String(),
			"score":   result.BestScore,
			"fits":    result.Fits,
		}).Info("grid search complete")
		return d.Len(), nil
	})
	return result, err
}

func (r *run) evaluate(strategies []*StrategyResult, test *dataset.Dataset) error {
	return r.stage(StageEvaluate, func() (int, error) {
		for _, s := range strategies {
			e, err := evaluate.Evaluate(s.model, test)
			if err != nil {
				return 0, err
			}
			s.Params = s.model.Params().String()
			s.Evaluation = e
			r.log.WithFields(logrus.Fields{
				"strategy": s.Name,
				"accuracy": e.Report.Accuracy,
				"recall":   e.Report.Recall(evaluate.Positive),
				"roc_auc":  e.ROCAUC,
			}).Info("strategy evaluated")
		}
		return test.Len(), nil
	})
}

func (r *run) sample(model *forest.Forest, test *dataset.Dataset) error {
	return r.stage(StageSample, func() (int, error) {
		s, err := evaluate.Sample(model, test, r.cfg.SampleIndex)
		if err != nil {
			return 0, err
		}
		r.report.Sample = s
		return 1, nil
	})
}

func (r *run) modelCharts(strategies []*StrategyResult) error {
	if !r.cfg.Charts {
		return nil
	}
	return r.stage(StageModelCharts, func() (int, error) {
		views := []*charts.Chart{charts.Importances(r.report.Importances)}
		for _, s := range strategies {
			views = append(views,
				charts.ConfusionHeatmap("Confusion matrix: "+s.Name, s.Evaluation.Report.Confusion),
				charts.ClassScores("Class scores: "+s.Name, s.Evaluation.Report),
			)
		}
		r.report.Charts = append(r.report.Charts, views...)
		return len(views), nil
	})
}
