package classify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// imageSize is the side length the EuroSAT model was trained on.
const imageSize = 64

// ONNXClassifier runs a trained EuroSAT model through onnxruntime. The
// session owns fixed input/output tensors, so runs are serialized.
type ONNXClassifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXClassifier initializes the onnxruntime environment and loads the
// model from modelPath. Call Close when done.
func NewONNXClassifier(modelPath string) (*ONNXClassifier, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(1, 3, imageSize, imageSize)
	outputShape := ort.NewShape(1, NumClasses)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Classify decodes and preprocesses the image, runs inference and converts
// the logits into a probability distribution.
func (c *ONNXClassifier) Classify(ctx context.Context, img io.Reader) (*Result, error) {
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
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	input := preprocess(decoded)

	c.mu.Lock()
	copy(c.inputTensor.GetData(), input)
	err = c.session.Run()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	logits := make([]float32, NumClasses)
	copy(logits, c.outputTensor.GetData())
	c.mu.Unlock()

	return resultFromDistribution(softmax(logits))
}

// Close releases the session and tensors.
func (c *ONNXClassifier) Close() {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	ort.DestroyEnvironment()
}

// preprocess resizes to the model's input size and lays the pixels out as a
// CHW float tensor normalized to [0,1].
func preprocess(img image.Image) []float32 {
	resized := resize.Resize(imageSize, imageSize, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	input := make([]float32, 3*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := y*width + x
			input[idx] = float32(r) / 65535.0
			input[width*height+idx] = float32(g) / 65535.0
			input[2*width*height+idx] = float32(b) / 65535.0
		}
	}
	return input
}

// softmax turns raw logits into a distribution, shifting by the max for
// numerical stability.
func softmax(logits []float32) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	dist := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		dist[i] = math.Exp(float64(v - maxLogit))
		sum += dist[i]
	}
	for i := range dist {
		dist[i] /= sum
	}
	return dist
}
