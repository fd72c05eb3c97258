// Package dataset 提供训练数据的读取、标准化与训练/测试划分。
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// Dataset 是按行存储的数值样本集合，行顺序有意义。
type Dataset struct {
	Features [][]float64
	Labels   []float64 // 无标签数据集为 nil。
	Header   []string  // 特征列名，无表头时为 nil。
}

// Len 返回样本数。
func (d *Dataset) Len() int {
	return len(d.Features)
}

// NumFeatures 返回特征维度。
func (d *Dataset) NumFeatures() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

// CSVOptions 控制 CSV 解析。
type CSVOptions struct {
	HasHeader   bool
	LabelColumn int  // 标签列下标，负数从末尾倒数，-1 表示最后一列。
	NoLabels    bool // 所有列均为特征，用于预测输入。
	Comma       rune // 分隔符，零值为逗号。
}

// DefaultCSVOptions 返回以最后一列为标签、首行为表头的配置。
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{HasHeader: true, LabelColumn: -1}
}

// LoadCSVFile 打开并解析 CSV 文件。
func LoadCSVFile(path string, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "open dataset "+path)
	}
	defer f.Close()

	return LoadCSV(bufio.NewReader(f), opts)
}

// LoadCSV 解析全数值 CSV。任一单元格无法解析为浮点数时返回 ErrInvalidDataset，并指出行列位置。
func LoadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	ds := &Dataset{}
	line := 0
	width := -1
	labelCol := 0

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.ErrInvalidDataset.Derive("line %d: %v", line+1, err)
		}
		line++

		if width < 0 {
			width = len(rec)
			if !opts.NoLabels {
				if width < 2 {
					return nil, xerrors.ErrInvalidDataset.Derive("need at least one feature and a label column, got %d columns", width)
				}
				labelCol = opts.LabelColumn
				if labelCol < 0 {
					labelCol += width
				}
				if labelCol < 0 || labelCol >= width {
					return nil, xerrors.ErrInvalidDataset.Derive("label column %d out of range for %d columns", opts.LabelColumn, width)
				}
			}
			if opts.HasHeader {
				ds.Header = featureNames(rec, labelCol, opts.NoLabels)
				continue
			}
		}

		x, y, err := parseRecord(rec, labelCol, opts.NoLabels)
		if err != nil {
			return nil, xerrors.ErrInvalidDataset.Derive("line %d: %v", line, err)
		}
		ds.Features = append(ds.Features, x)
		if !opts.NoLabels {
			ds.Labels = append(ds.Labels, y)
		}
	}

	if len(ds.Features) == 0 {
		return nil, xerrors.ErrEmptyData.Derive("dataset has no rows")
	}
	return ds, nil
}

func featureNames(rec []string, labelCol int, noLabels bool) []string {
	names := make([]string, 0, len(rec))
	for i, h := range rec {
		if !noLabels && i == labelCol {
			continue
		}
		names = append(names, strings.TrimSpace(h))
	}
	return names
}

func parseRecord(rec []string, labelCol int, noLabels bool) ([]float64, float64, error) {
	x := make([]float64, 0, len(rec))
	var y float64
	for i, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, 0, &columnError{col: i + 1, value: s}
		}
		if !noLabels && i == labelCol {
			y = v
			continue
		}
		x = append(x, v)
	}
	return x, y, nil
}

type columnError struct {
	col   int
	value string
}

func (e *columnError) Error() string {
	return "column " + strconv.Itoa(e.col) + ": not a number: " + strconv.Quote(e.value)
}

// TrainTestSplit 以给定种子打乱样本后按比例划分，testRatio 取值 [0, 1)。
// 相同种子得到相同划分；划分后各自保持打乱后的顺序。
func TrainTestSplit(d *Dataset, testRatio float64, seed uint64) (train, test *Dataset, err error) {
	if d == nil || d.Len() == 0 {
		return nil, nil, xerrors.ErrEmptyData.Derive("nothing to split")
	}
	if !(testRatio >= 0 && testRatio < 1) {
		return nil, nil, xerrors.ErrInvalidConfig.Derive("test ratio must be in [0, 1), got %v", testRatio)
	}
	if d.Labels != nil && len(d.Labels) != d.Len() {
		return nil, nil, xerrors.ErrDimMismatch.Derive("got %d labels for %d samples", len(d.Labels), d.Len())
	}

	n := d.Len()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := rng.Perm(n)
	nTest := int(float64(n) * testRatio)

	test = subset(d, idx[:nTest])
	train = subset(d, idx[nTest:])
	return train, test, nil
}

func subset(d *Dataset, idx []int) *Dataset {
	out := &Dataset{
		Features: make([][]float64, len(idx)),
		Header:   d.Header,
	}
	if d.Labels != nil {
		out.Labels = make([]float64, len(idx))
	}
	for i, j := range idx {
		out.Features[i] = d.Features[j]
		if d.Labels != nil {
			out.Labels[i] = d.Labels[j]
		}
	}
	return out
}
