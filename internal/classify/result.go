package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// sumTolerance is the allowed drift of the probability mass from 1.0.
const sumTolerance = 1e-6

// ErrBadImage is returned when the input cannot be decoded as an image.
var ErrBadImage = errors.New("image could not be decoded")

// Result is the outcome of classifying a single image. Distribution has one
// entry per taxonomy class, Index is the argmax and Confidence is the
// probability mass at Index.
type Result struct {
	Index        int
	Confidence   float64
	Distribution []float64
}

// Classifier maps an image to a probability distribution over the taxonomy.
// Implementations may block; callers bound them with the context.
type Classifier interface {
	Classify(ctx context.Context, image io.Reader) (*Result, error)
}

// Label returns the canonical class name of the predicted class.
func (r *Result) Label() string {
	return Label(r.Index)
}

// ConfidencePercent returns the confidence scaled to 0-100.
func (r *Result) ConfidencePercent() float64 {
	return r.Confidence * 100
}

// Validate checks the internal consistency of the result: the distribution
// covers every class and sums to one, Index points at the largest entry and
// Confidence equals that entry.
func (r *Result) Validate() error {
	if len(r.Distribution) != NumClasses {
		return fmt.Errorf("distribution has %d entries, want %d", len(r.Distribution), NumClasses)
	}
	if r.Index < 0 || r.Index >= NumClasses {
		return fmt.Errorf("predicted index %d out of range", r.Index)
	}

	var sum float64
	argmax := 0
	for i, p := range r.Distribution {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("distribution[%d] = %v is not a probability", i, p)
		}
		sum += p
		if p > r.Distribution[argmax] {
			argmax = i
		}
	}
	if math.Abs(sum-1.0) > sumTolerance {
		return fmt.Errorf("distribution sums to %v, want 1.0", sum)
	}
	if r.Distribution[r.Index] != r.Distribution[argmax] {
		return fmt.Errorf("predicted index %d is not the argmax (%d)", r.Index, argmax)
	}
	if r.Confidence != r.Distribution[r.Index] {
		return fmt.Errorf("confidence %v does not match distribution[%d] = %v", r.Confidence, r.Index, r.Distribution[r.Index])
	}
	return nil
}

// resultFromDistribution derives the argmax and confidence from a raw
// distribution and validates the whole.
func resultFromDistribution(dist []float64) (*Result, error) {
	if len(dist) == 0 {
		return nil, fmt.Errorf("empty distribution")
	}
	argmax := 0
	for i, p := range dist {
		if p > dist[argmax] {
			argmax = i
		}
	}
	r := &Result{Index: argmax, Confidence: dist[argmax], Distribution: dist}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
