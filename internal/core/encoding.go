package core

import (
	"fmt"

	"github.com/daulet/tokenizers"
)

const (
	// Inference pads every request to this length unless configured otherwise.
	DefaultMaxSequenceLength = 128

	// XLM-RoBERTa's <pad> id, used when the checkpoint config does not say.
	DefaultPadTokenId = 1
)

type Encoded struct {
	InputIds      []int64
	AttentionMask []int64
}

func (e Encoded) Len() int {
	return len(e.InputIds)
}

// TextEncoder turns raw text into model inputs with the tokenizer the model
// was trained with. Encodings include the special tokens and are truncated
// to MaxLength; a trailing special token survives truncation.
type TextEncoder struct {
	tokenizer *tokenizers.Tokenizer
	MaxLength int
	PadId     int64
}

func NewTextEncoder(tokenizer *tokenizers.Tokenizer, maxLength int, padId int64) *TextEncoder {
	return &TextEncoder{tokenizer: tokenizer, MaxLength: maxLength, PadId: padId}
}

func LoadTokenizerFile(path string) (*tokenizers.Tokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("error loading tokenizer from %s: %w", path, err)
	}
	return tk, nil
}

func LoadPretrainedTokenizer(name string) (*tokenizers.Tokenizer, error) {
	tk, err := tokenizers.FromPretrained(name)
	if err != nil {
		return nil, fmt.Errorf("error loading pretrained tokenizer %s: %w", name, err)
	}
	return tk, nil
}

func (e *TextEncoder) Encode(text string) (Encoded, error) {
	enc := e.tokenizer.EncodeWithOptions(text, true,
		tokenizers.WithReturnAttentionMask(),
		tokenizers.WithReturnSpecialTokensMask(),
	)
	if len(enc.IDs) == 0 {
		return Encoded{}, fmt.Errorf("tokenizer produced no tokens")
	}

	mask := enc.AttentionMask
	if len(mask) != len(enc.IDs) {
		mask = make([]uint32, len(enc.IDs))
		for i := range mask {
			mask[i] = 1
		}
	}

	ids := truncate(enc.IDs, enc.SpecialTokensMask, e.MaxLength)
	mask = truncate(mask, enc.SpecialTokensMask, e.MaxLength)

	return Encoded{InputIds: toInt64(ids), AttentionMask: toInt64(mask)}, nil
}

func (e *TextEncoder) Close() error {
	return e.tokenizer.Close()
}

func truncate(values, specialMask []uint32, maxLength int) []uint32 {
	if maxLength <= 0 || len(values) <= maxLength {
		return values
	}

	out := make([]uint32, maxLength)
	copy(out, values[:maxLength])

	last := len(values) - 1
	if len(specialMask) == len(values) && specialMask[last] == 1 {
		out[maxLength-1] = values[last]
	}
	return out
}

// Pad right-pads an encoding to length with padId and a zero attention mask.
// Encodings already at or beyond length are returned unchanged.
func Pad(enc Encoded, length int, padId int64) Encoded {
	if enc.Len() >= length {
		return enc
	}

	ids := make([]int64, length)
	mask := make([]int64, length)
	copy(ids, enc.InputIds)
	copy(mask, enc.AttentionMask)
	for i := enc.Len(); i < length; i++ {
		ids[i] = padId
	}
	return Encoded{InputIds: ids, AttentionMask: mask}
}

func toInt64(values []uint32) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}
