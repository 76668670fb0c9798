package classify

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T) *bytes.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytes.NewReader(buf.Bytes())
}

func TestSimulatedClassifyProducesValidResult(t *testing.T) {
	c := &Simulated{rng: rand.New(rand.NewSource(42))}

	for i := 0; i < 50; i++ {
		result, err := c.Classify(context.Background(), testPNG(t))
		require.NoError(t, err)
		assert.NoError(t, result.Validate())
		// The boost guarantees a dominant class.
		assert.GreaterOrEqual(t, result.Confidence, dominantBoost/(1+dominantBoost)-1e-9)
	}
}

func TestSimulatedClassifyRejectsEmptyInput(t *testing.T) {
	c := NewSimulated()

	_, err := c.Classify(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrBadImage)
}

func TestSimulatedClassifyRejectsGarbage(t *testing.T) {
	c := NewSimulated()

	_, err := c.Classify(context.Background(), strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrBadImage)
}

func TestSimulatedClassifyHonorsCancelledContext(t *testing.T) {
	c := NewSimulated()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, testPNG(t))
	assert.ErrorIs(t, err, context.Canceled)
}
