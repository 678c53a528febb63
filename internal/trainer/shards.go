package trainer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"langid-backend/internal/core"
	"langid-backend/internal/core/utils"
	"langid-backend/pkg/api"

	"github.com/schollz/progressbar/v3"
)

const (
	TrainShard      = "train.jsonl"
	ValidationShard = "validation.jsonl"
)

// Encoder is the tokenizer as the trainer sees it. core.TextEncoder satisfies it.
type Encoder interface {
	Encode(text string) (core.Encoded, error)
	Close() error
}

type labeledText struct {
	text  string
	label int
}

// encodeAll tokenizes every example (truncated by the encoder) and pads the
// whole set to its longest sequence.
func encodeAll(encoder Encoder, examples []labeledText, padId int64, progress io.Writer) ([]api.EncodedExample, error) {
	bar := progressbar.NewOptions(len(examples),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("tokenizing"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	encoded, err := utils.MapOrdered(examples, func(ex labeledText) (core.Encoded, error) {
		return encoder.Encode(ex.text)
	}, runtime.NumCPU(), func() { _ = bar.Add(1) })
	if err != nil {
		return nil, fmt.Errorf("error tokenizing dataset: %w", err)
	}
	_ = bar.Finish()

	longest := 0
	for _, enc := range encoded {
		longest = max(longest, enc.Len())
	}

	out := make([]api.EncodedExample, len(encoded))
	for i, enc := range encoded {
		padded := core.Pad(enc, longest, padId)
		out[i] = api.EncodedExample{
			InputIds:      padded.InputIds,
			AttentionMask: padded.AttentionMask,
			Label:         examples[i].label,
		}
	}
	return out, nil
}

func writeShard(path string, examples []api.EncodedExample) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating shard %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("error writing shard %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error flushing shard %s: %w", path, err)
	}
	return file.Close()
}
