package algorithm

import "github.com/wyfcoding/kernelsvm/xerrors"

// Report 汇总二分类预测质量，正类为 +1。
type Report struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	TN        int     `json:"tn"`
	FN        int     `json:"fn"`
	Undecided int     `json:"undecided"` // 决策值恰为 0 的样本，不计入混淆矩阵。
	Total     int     `json:"total"`
}

// Accuracy 返回预测值与转换为 {-1, +1} 的真实标签完全相等的比例。
func Accuracy(pred []int, yTrue []float64) (float64, error) {
	if err := checkPairs(pred, yTrue); err != nil {
		return 0, err
	}

	labels := CoerceLabels(yTrue)
	correct := 0
	for i, p := range pred {
		if float64(p) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(pred)), nil
}

// Evaluate 计算准确率、混淆矩阵以及正类的精确率、召回率与 F1。
func Evaluate(pred []int, yTrue []float64) (Report, error) {
	acc, err := Accuracy(pred, yTrue)
	if err != nil {
		return Report{}, err
	}

	r := Report{Accuracy: acc, Total: len(pred)}
	for i, y := range CoerceLabels(yTrue) {
		switch {
		case pred[i] == 0:
			r.Undecided++
		case pred[i] == 1 && y == 1:
			r.TP++
		case pred[i] == 1:
			r.FP++
		case y == 1:
			r.FN++
		default:
			r.TN++
		}
	}

	if r.TP+r.FP > 0 {
		r.Precision = float64(r.TP) / float64(r.TP+r.FP)
	}
	if r.TP+r.FN > 0 {
		r.Recall = float64(r.TP) / float64(r.TP+r.FN)
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r, nil
}

func checkPairs(pred []int, yTrue []float64) error {
	if len(pred) != len(yTrue) {
		return xerrors.ErrDimMismatch.Derive("got %d predictions for %d labels", len(pred), len(yTrue))
	}
	if len(pred) == 0 {
		return xerrors.ErrEmptyData.Derive("nothing to evaluate")
	}
	return nil
}
