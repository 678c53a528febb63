package core

import "context"

// Classifier runs one forward pass over a single text and returns the raw
// output scores, one per class index. Implementations must not mutate shared
// state in Logits.
type Classifier interface {
	Logits(ctx context.Context, text string) ([]float32, error)

	Release()
}
