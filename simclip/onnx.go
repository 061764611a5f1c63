package simclip

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hupe1980/sonigo/internal/math32"
)

// The ONNX Runtime environment is process-global; refcount it so several
// models can coexist and the last Close tears it down.
var ortEnv struct {
	mu   sync.Mutex
	refs int
}

func acquireRuntime(library string) error {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()

	if ortEnv.refs == 0 {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("simclip: initialize onnx runtime: %w", err)
		}
	}
	ortEnv.refs++
	return nil
}

func releaseRuntime() {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()

	ortEnv.refs--
	if ortEnv.refs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// ONNXModel runs a similarity model exported to ONNX.
type ONNXModel struct {
	cfg     Config
	session *ort.DynamicAdvancedSession

	closeOnce sync.Once
	closeErr  error
}

var _ Model = (*ONNXModel)(nil)

// NewONNXModel loads the model named by the config.
func NewONNXModel(cfg Config) (*ONNXModel, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := acquireRuntime(cfg.ONNXLibrary); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		releaseRuntime()
		return nil, fmt.Errorf("simclip: load model %s: %w", cfg.ModelPath, err)
	}

	return &ONNXModel{cfg: cfg, session: session}, nil
}

// Dimension implements Model.
func (m *ONNXModel) Dimension() int { return m.cfg.Dimension }

// Embed implements Model. The mel frames are fed channels-first as
// [1, bins, frames]; the output embedding is L2-normalized.
func (m *ONNXModel) Embed(melFrames [][]float32) ([]float32, error) {
	frames := len(melFrames)
	if frames == 0 {
		return nil, fmt.Errorf("simclip: cannot embed an empty spectrogram")
	}
	bins := len(melFrames[0])

	flat := make([]float32, bins*frames)
	for f, row := range melFrames {
		if len(row) != bins {
			return nil, fmt.Errorf("simclip: ragged spectrogram: frame %d has %d bins, want %d", f, len(row), bins)
		}
		for b, v := range row {
			flat[b*frames+f] = v
		}
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(bins), int64(frames)), flat)
	if err != nil {
		return nil, fmt.Errorf("simclip: build input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(m.cfg.Dimension)))
	if err != nil {
		return nil, fmt.Errorf("simclip: build output tensor: %w", err)
	}
	defer output.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("simclip: run model: %w", err)
	}

	emb := make([]float32, m.cfg.Dimension)
	copy(emb, output.GetData())
	math32.NormalizeL2InPlace(emb)
	return emb, nil
}

// Close implements Model.
func (m *ONNXModel) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.session.Destroy()
		releaseRuntime()
	})
	return m.closeErr
}
