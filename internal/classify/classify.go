// Package classify turns a closed sample batch into a single content label by
// running a per-sample classifier and taking the majority vote.
package classify

import (
	"errors"
	"fmt"

	"mindtv/internal/batch"
)

var (
	ErrEmptyBatch = errors.New("cannot classify an empty batch")
	ErrClassifier = errors.New("classifier failed")
)

// Classifier predicts a content label from one sample's features.
type Classifier interface {
	Predict(ir, bpm, avgBPM, gsr float64) (string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ir, bpm, avgBPM, gsr float64) (string, error)

func (f ClassifierFunc) Predict(ir, bpm, avgBPM, gsr float64) (string, error) {
	return f(ir, bpm, avgBPM, gsr)
}

// Result is the outcome of classifying a batch.
type Result struct {
	Label       string   `json:"label"`
	Count       int      `json:"count"`
	Total       int      `json:"total"`
	Predictions []string `json:"predictions,omitempty"`
}

// Classify predicts every sample of b in order and returns the majority label.
// Any prediction error aborts the whole batch; no partial result is returned.
func Classify(b *batch.Closed, c Classifier) (Result, error) {
	if b == nil || b.Len() == 0 {
		return Result{}, ErrEmptyBatch
	}
	if c == nil {
		return Result{}, fmt.Errorf("%w: no classifier", ErrClassifier)
	}

	preds := make([]string, b.Len())
	for i := 0; i < b.Len(); i++ {
		label, err := predict(c, b, i)
		if err != nil {
			return Result{}, err
		}
		preds[i] = label
	}

	label, count := MajorityVote(preds)
	return Result{Label: label, Count: count, Total: len(preds), Predictions: preds}, nil
}

func predict(c Classifier, b *batch.Closed, i int) (label string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: sample %d: panic: %v", ErrClassifier, i, p)
		}
	}()

	s := b.At(i)
	label, err = c.Predict(s.IR, s.BPM, s.AvgBPM, s.GSR)
	if err != nil {
		return "", fmt.Errorf("%w: sample %d: %v", ErrClassifier, i, err)
	}
	return label, nil
}

// MajorityVote returns the most frequent label and its count. Ties go to the
// label that first appeared earliest. An empty input yields ("", 0).
func MajorityVote(labels []string) (string, int) {
	counts := make(map[string]int, 8)
	first := make(map[string]int, 8)
	for i, l := range labels {
		if _, ok := first[l]; !ok {
			first[l] = i
		}
		counts[l]++
	}

	best, bestCount := "", 0
	for l, n := range counts {
		if n > bestCount || (n == bestCount && first[l] < first[best]) {
			best, bestCount = l, n
		}
	}
	return best, bestCount
}
