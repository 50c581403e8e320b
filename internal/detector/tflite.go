package detector

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/tphakala/go-tflite"
	"sediment-analysis-backend/internal/imaging"
)

// TFLiteEngine runs a TensorFlow Lite detection model in-process. The model
// is loaded once; the interpreter is not safe for concurrent invocation, so a
// mutex serializes Invoke across in-flight requests.
type TFLiteEngine struct {
	mu            sync.Mutex
	interpreter   *tflite.Interpreter
	modelName     string
	minConfidence float32
}

func NewTFLiteEngine(modelPath string, minConfidence float64) (*TFLiteEngine, error) {
	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, fmt.Errorf("cannot load model from path: %s", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(runtime.NumCPU())

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, fmt.Errorf("cannot create interpreter")
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("tensor allocation failed")
	}

	return &TFLiteEngine{
		interpreter:   interpreter,
		modelName:     modelPath,
		minConfidence: float32(minConfidence),
	}, nil
}

func (e *TFLiteEngine) ModelName() string {
	return e.modelName
}

func (e *TFLiteEngine) Detect(img *imaging.DecodedImage) ([]RawDetection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	input := e.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	if input.NumDims() != 4 {
		return nil, fmt.Errorf("unexpected input tensor rank %d", input.NumDims())
	}
	inputH := input.Dim(1)
	inputW := input.Dim(2)

	fillInputTensor(input.Float32s(), img.Image, inputW, inputH)

	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("model invoke failed")
	}

	output := e.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, fmt.Errorf("cannot get output tensor")
	}
	rows := output.Dim(output.NumDims() - 2)
	cols := output.Dim(output.NumDims() - 1)
	raw := make([]float32, rows*cols)
	copy(raw, output.Float32s())

	scaleX := float64(img.Width) / float64(inputW)
	scaleY := float64(img.Height) / float64(inputH)
	return parseOutputRows(raw, cols, scaleX, scaleY, e.minConfidence), nil
}

// fillInputTensor writes the image into the model input as normalized RGB,
// resized with nearest-neighbor sampling.
func fillInputTensor(dst []float32, src image.Image, width, height int) {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	idx := 0
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y*srcH/height
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x*srcW/width
			r, g, b, _ := src.At(sx, sy).RGBA()
			dst[idx] = float32(r>>8) / 255.0
			dst[idx+1] = float32(g>>8) / 255.0
			dst[idx+2] = float32(b>>8) / 255.0
			idx += 3
		}
	}
}

// parseOutputRows decodes the post-NMS detection tensor. Each row is
// (x1, y1, x2, y2, confidence, class) in model-input coordinates; rows below
// the confidence floor are padding and are skipped.
func parseOutputRows(raw []float32, stride int, scaleX, scaleY float64, minConfidence float32) []RawDetection {
	detections := make([]RawDetection, 0)
	if stride < 6 {
		return detections
	}
	for off := 0; off+stride <= len(raw); off += stride {
		confidence := raw[off+4]
		if confidence < minConfidence {
			continue
		}
		x1 := float64(raw[off]) * scaleX
		y1 := float64(raw[off+1]) * scaleY
		x2 := float64(raw[off+2]) * scaleX
		y2 := float64(raw[off+3]) * scaleY
		if x2 < x1 {
			x1, x2 = x2, x1
		}
		if y2 < y1 {
			y1, y2 = y2, y1
		}
		detections = append(detections, RawDetection{
			ClassIndex: int(raw[off+5]),
			Confidence: confidence,
			X1:         x1,
			Y1:         y1,
			X2:         x2,
			Y2:         y2,
		})
	}
	return detections
}
