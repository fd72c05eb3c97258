// Command svm-train 读取 CSV 训练集，训练核 SVM，评估并保存模型产物。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/bootstrap"
	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/dataset"
	"github.com/wyfcoding/kernelsvm/logging"
	"github.com/wyfcoding/kernelsvm/metrics"
	"github.com/wyfcoding/kernelsvm/modelstore"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "svm-train:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	b := bootstrap.New("svm-train", version)
	config.RegisterTrainFlags(b.Flags)
	config.RegisterModelFlags(b.Flags)
	b.Flags.String("data", "", "training CSV file")
	b.Flags.String("metrics-file", "", "write Prometheus textfile metrics here after training")
	if err := b.Initialize(args); err != nil {
		return err
	}
	conf := b.Config

	if conf.Data.Path == "" {
		return xerrors.ErrInvalidConfig.Derive("no training data: set --data or data.path")
	}
	ds, err := dataset.LoadCSVFile(conf.Data.Path, conf.Data.CSVOptions())
	if err != nil {
		return err
	}
	logging.Info(ctx, "dataset loaded", "path", conf.Data.Path, "samples", ds.Len(), "features", ds.NumFeatures())

	train, test, err := dataset.TrainTestSplit(ds, conf.Data.TestRatio, conf.Data.Seed)
	if err != nil {
		return err
	}

	var scaler *dataset.StandardScaler
	trainX, testX := train.Features, test.Features
	if conf.Data.Standardize {
		scaler = &dataset.StandardScaler{}
		if trainX, err = scaler.FitTransform(train.Features); err != nil {
			return err
		}
		if test.Len() > 0 {
			if testX, err = scaler.Transform(test.Features); err != nil {
				return err
			}
		}
	}

	algoCfg, err := conf.Train.AlgorithmConfig()
	if err != nil {
		return err
	}
	svm, err := algorithm.NewSVM(algoCfg)
	if err != nil {
		return err
	}

	logging.Info(ctx, "training started",
		"kernel", algoCfg.Kernel.String(),
		"learning_rate", algoCfg.LearningRate,
		"lambda", algoCfg.Lambda,
		"epochs", algoCfg.Epochs,
		"train_samples", train.Len(),
		"test_samples", test.Len(),
	)
	start := time.Now()
	if err := svm.Train(trainX, train.Labels); err != nil {
		return err
	}
	elapsed := time.Since(start)

	trace := svm.LossTrace()
	logLossTrace(ctx, trace)

	m := metrics.NewMetrics(b.ServiceName)
	m.RegisterBuildInfo(b.ServiceName, version)
	m.ObserveTraining(algoCfg.Kernel, trace, elapsed)

	trainAcc, err := score(ctx, svm, "train", trainX, train.Labels)
	if err != nil {
		return err
	}
	m.ObserveAccuracy(algoCfg.Kernel, "train", trainAcc)

	var testAcc float64
	if test.Len() > 0 {
		if testAcc, err = score(ctx, svm, "test", testX, test.Labels); err != nil {
			return err
		}
		m.ObserveAccuracy(algoCfg.Kernel, "test", testAcc)
	}

	snap, err := svm.Snapshot()
	if err != nil {
		return err
	}
	store, err := modelstore.New(ctx, conf.Model, conf.Minio)
	if err != nil {
		return err
	}
	artifact := &modelstore.Artifact{
		Name:          conf.Model.Name,
		CreatedAt:     time.Now().UTC(),
		Model:         snap,
		Scaler:        scaler,
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		TestSamples:   test.Len(),
	}
	if err := store.Save(ctx, artifact); err != nil {
		return err
	}
	logging.Info(ctx, "model saved", "name", artifact.Name, "store", conf.Model.Store, "duration", elapsed)

	if conf.Metrics.Textfile != "" {
		if err := m.WriteTextfile(conf.Metrics.Textfile); err != nil {
			return xerrors.WrapInternal(err, "write metrics textfile")
		}
	}
	return nil
}

// logLossTrace 在 debug 级别输出约 10 个采样点，在 info 级别输出首末损失。
func logLossTrace(ctx context.Context, trace []float64) {
	if len(trace) == 0 {
		return
	}
	step := max(len(trace)/10, 1)
	for i := 0; i < len(trace); i += step {
		logging.Debug(ctx, "epoch loss", "epoch", i+1, "loss", trace[i])
	}
	logging.Info(ctx, "training finished", "epochs", len(trace), "first_loss", trace[0], "final_loss", trace[len(trace)-1])
}

func score(ctx context.Context, svm *algorithm.SVM, split string, X [][]float64, y []float64) (float64, error) {
	pred, err := svm.Predict(X)
	if err != nil {
		return 0, err
	}
	r, err := algorithm.Evaluate(pred, y)
	if err != nil {
		return 0, err
	}
	logging.Info(ctx, "evaluation",
		"split", split,
		"accuracy", r.Accuracy,
		"precision", r.Precision,
		"recall", r.Recall,
		"f1", r.F1,
		"undecided", r.Undecided,
		"total", r.Total,
	)
	return r.Accuracy, nil
}
