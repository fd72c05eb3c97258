// Command svm-predict 用已保存的模型对 CSV 样本打分，输出每行的类别与决策值。
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/bootstrap"
	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/dataset"
	"github.com/wyfcoding/kernelsvm/logging"
	"github.com/wyfcoding/kernelsvm/modelstore"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "svm-predict:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	b := bootstrap.New("svm-predict", version)
	config.RegisterModelFlags(b.Flags)
	b.Flags.String("data", "", "CSV file with samples to score")
	b.Flags.String("output", "-", "output CSV file, - for stdout")
	b.Flags.Bool("has-labels", false, "input carries a label column; report accuracy")
	if err := b.Initialize(args); err != nil {
		return err
	}
	conf := b.Config
	output, _ := b.Flags.GetString("output")
	hasLabels, _ := b.Flags.GetBool("has-labels")

	if conf.Data.Path == "" {
		return xerrors.ErrInvalidConfig.Derive("no input data: set --data or data.path")
	}

	store, err := modelstore.New(ctx, conf.Model, conf.Minio)
	if err != nil {
		return err
	}
	artifact, err := store.Load(ctx, conf.Model.Name)
	if err != nil {
		return err
	}
	svm, err := artifact.SVM()
	if err != nil {
		return err
	}

	opts := conf.Data.CSVOptions()
	opts.NoLabels = !hasLabels
	ds, err := dataset.LoadCSVFile(conf.Data.Path, opts)
	if err != nil {
		return err
	}

	X := ds.Features
	if artifact.Scaler != nil {
		if X, err = artifact.Scaler.Transform(ds.Features); err != nil {
			return err
		}
	}

	scores, err := svm.DecisionFunction(X)
	if err != nil {
		return err
	}
	pred := make([]int, len(scores))
	for i, v := range scores {
		pred[i] = algorithm.Sign(v)
	}

	w := stdout
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return xerrors.WrapInternal(err, "create output "+output)
		}
		defer f.Close()
		w = f
	}
	if err := writePredictions(w, pred, scores); err != nil {
		return err
	}

	logging.Info(ctx, "prediction finished", "model", artifact.Name, "kernel", svm.Kernel().String(), "samples", len(pred))
	if hasLabels {
		r, err := algorithm.Evaluate(pred, ds.Labels)
		if err != nil {
			return err
		}
		logging.Info(ctx, "evaluation",
			"accuracy", r.Accuracy,
			"precision", r.Precision,
			"recall", r.Recall,
			"f1", r.F1,
			"undecided", r.Undecided,
		)
	}
	return nil
}

func writePredictions(w io.Writer, pred []int, scores []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"prediction", "score"}); err != nil {
		return err
	}
	for i := range pred {
		rec := []string{strconv.Itoa(pred[i]), strconv.FormatFloat(scores[i], 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
