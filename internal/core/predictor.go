package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"langid-backend/internal/core/types"
	"langid-backend/internal/labels"
)

// Predictor maps text to a single language label. The classifier and
// vocabulary are loaded once and only read afterwards; forward passes are
// serialized since the runtime is not assumed to be re-entrant.
type Predictor struct {
	classifier Classifier
	vocab      *labels.Vocabulary

	mu sync.Mutex
}

func NewPredictor(classifier Classifier, vocab *labels.Vocabulary) *Predictor {
	return &Predictor{classifier: classifier, vocab: vocab}
}

// LoadPredictor performs the one-time startup sequence: model, then
// tokenizer, then label vocabulary. Any failure is a StartupError and nothing
// loaded so far is kept.
func LoadPredictor(dir string, opts OnnxOptions) (*Predictor, error) {
	dir, err := ResolveCheckpointDir(dir)
	if err != nil {
		return nil, types.NewStartupError("checkpoint", err)
	}

	if opts.MaxSequenceLength <= 0 {
		opts.MaxSequenceLength = DefaultMaxSequenceLength
	}

	session, numLabels, err := loadOnnxSession(dir)
	if err != nil {
		return nil, types.NewStartupError("model", err)
	}

	tk, err := loadCheckpointTokenizer(dir, opts.BaseTokenizer)
	if err != nil {
		session.Destroy()
		return nil, types.NewStartupError("tokenizer", err)
	}

	padId, err := readPadTokenId(dir)
	if err != nil {
		session.Destroy()
		tk.Close()
		return nil, types.NewStartupError("tokenizer", err)
	}

	vocab, err := labels.ReadConfig(dir)
	if err != nil {
		session.Destroy()
		tk.Close()
		return nil, types.NewStartupError("label vocabulary", err)
	}

	if int(numLabels) != vocab.Size() {
		slog.Warn("model output size does not match label vocabulary", "outputs", numLabels, "labels", vocab.Size())
	}

	classifier := &OnnxClassifier{
		session:   session,
		encoder:   NewTextEncoder(tk, opts.MaxSequenceLength, padId),
		numLabels: numLabels,
	}

	slog.Info("loaded checkpoint", "dir", dir, "labels", vocab.Size(), "max_sequence_length", opts.MaxSequenceLength)

	return NewPredictor(classifier, vocab), nil
}

func (p *Predictor) Predict(ctx context.Context, text string) (types.PredictionResult, error) {
	if text == "" {
		return types.PredictionResult{}, types.ValidationErrorf("No text provided")
	}

	logits, err := p.forward(ctx, text)
	if err != nil {
		return types.PredictionResult{}, types.InferenceErrorf("%w", err)
	}

	probs, err := Softmax(logits)
	if err != nil {
		return types.PredictionResult{}, types.InferenceErrorf("%w", err)
	}

	best := ArgMax(logits)

	label, ok := p.vocab.Decode(best)
	if !ok {
		slog.Warn("predicted index has no label", "index", best, "labels", p.vocab.Size())
		label = types.UnknownLabel
	}

	return types.PredictionResult{
		Label:      label,
		Confidence: clamp01(probs[best]),
		Status:     types.StatusSuccess,
	}, nil
}

func (p *Predictor) forward(ctx context.Context, text string) (logits []float32, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during forward pass: %v", r)
		}
	}()

	return p.classifier.Logits(ctx, text)
}

func (p *Predictor) Labels() []string {
	return p.vocab.Labels()
}

func (p *Predictor) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classifier.Release()
}

// Softmax converts raw scores to a probability distribution. Scores are
// shifted by their maximum before exponentiation.
func Softmax(logits []float32) ([]float64, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("model returned no scores")
	}

	maxLogit := math.Inf(-1)
	for i, v := range logits {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("model returned non-finite score %v at index %d", v, i)
		}
		maxLogit = max(maxLogit, f)
	}

	probs := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// ArgMax returns the index of the largest value, the first one on ties.
func ArgMax[T float32 | float64](values []T) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
