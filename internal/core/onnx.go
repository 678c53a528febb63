package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"langid-backend/internal/core/types"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// InitOnnxRuntime loads the onnxruntime shared library and creates the
// process-wide environment. Only the first call has any effect.
func InitOnnxRuntime(dylib string) error {
	initOnce.Do(func() {
		if dylib != "" {
			ort.SetSharedLibraryPath(dylib)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

func DestroyOnnxRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

const (
	inputIdsName      = "input_ids"
	attentionMaskName = "attention_mask"
	logitsName        = "logits"
)

type OnnxClassifier struct {
	session   *ort.DynamicAdvancedSession
	encoder   *TextEncoder
	numLabels int64
}

var _ Classifier = (*OnnxClassifier)(nil)

type OnnxOptions struct {
	MaxSequenceLength int

	// Tokenizer to fall back to when the checkpoint has no tokenizer.json.
	BaseTokenizer string
}

func loadOnnxSession(dir string) (*ort.DynamicAdvancedSession, int64, error) {
	modelPath := filepath.Join(dir, OnnxModelFile)
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, types.ConfigurationErrorf("model file %s does not exist", modelPath)
		}
		return nil, 0, fmt.Errorf("error checking model file %s: %w", modelPath, err)
	}

	_, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading model outputs from %s: %w", modelPath, err)
	}

	var numLabels int64 = -1
	for _, output := range outputs {
		if output.Name == logitsName && len(output.Dimensions) > 0 {
			numLabels = output.Dimensions[len(output.Dimensions)-1]
		}
	}
	if numLabels <= 0 {
		return nil, 0, fmt.Errorf("model %s has no '%s' output with a static class dimension", modelPath, logitsName)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputIdsName, attentionMaskName},
		[]string{logitsName},
		nil,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create onnx session for %s: %w", modelPath, err)
	}

	return session, numLabels, nil
}

func loadCheckpointTokenizer(dir, baseTokenizer string) (*tokenizers.Tokenizer, error) {
	path := filepath.Join(dir, TokenizerFile)
	if _, err := os.Stat(path); err == nil {
		return LoadTokenizerFile(path)
	}

	if baseTokenizer == "" {
		return nil, types.ConfigurationErrorf("checkpoint %s has no %s and no base tokenizer is configured", dir, TokenizerFile)
	}

	slog.Warn("checkpoint has no tokenizer, falling back to base tokenizer; tokenization may not match training", "dir", dir, "base_tokenizer", baseTokenizer)
	return LoadPretrainedTokenizer(baseTokenizer)
}

func (m *OnnxClassifier) Logits(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := m.encoder.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	enc = Pad(enc, m.encoder.MaxLength, m.encoder.PadId)

	B, L := int64(1), int64(enc.Len())

	idsT, err := ort.NewTensor(ort.NewShape(B, L), enc.InputIds)
	if err != nil {
		return nil, err
	}
	defer idsT.Destroy()

	maskT, err := ort.NewTensor(ort.NewShape(B, L), enc.AttentionMask)
	if err != nil {
		return nil, err
	}
	defer maskT.Destroy()

	outT, err := ort.NewEmptyTensor[float32](ort.NewShape(B, m.numLabels))
	if err != nil {
		return nil, err
	}
	defer outT.Destroy()

	if err := m.session.Run([]ort.Value{idsT, maskT}, []ort.Value{outT}); err != nil {
		return nil, fmt.Errorf("session run error: %w", err)
	}

	logits := make([]float32, m.numLabels)
	copy(logits, outT.GetData())
	return logits, nil
}

func (m *OnnxClassifier) Release() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.encoder != nil {
		m.encoder.Close()
	}
}
