package classify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for image.Decode
	_ "image/png"
	"io"
	"math/rand"
	"sync"
	"time"
)

// dominantBoost is the extra mass given to the randomly chosen dominant
// class before renormalizing, so every draw has a clear winner.
const dominantBoost = 0.6

// Simulated is a placeholder Classifier that validates the input image and
// returns a random but internally consistent distribution. It stands in for
// the real model in development and tests.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated returns a Simulated classifier seeded from the clock.
func NewSimulated() *Simulated {
	return &Simulated{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Classify decodes the image to reject garbage input, then draws a
// distribution with one boosted dominant class.
func (s *Simulated) Classify(ctx context.Context, img io.Reader) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(img)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrBadImage)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	s.mu.Lock()
	dist := make([]float64, NumClasses)
	var sum float64
	for i := range dist {
		dist[i] = s.rng.ExpFloat64()
		sum += dist[i]
	}
	dominant := s.rng.Intn(NumClasses)
	s.mu.Unlock()

	for i := range dist {
		dist[i] /= sum
	}
	dist[dominant] += dominantBoost
	for i := range dist {
		dist[i] /= 1 + dominantBoost
	}

	return resultFromDistribution(dist)
}
