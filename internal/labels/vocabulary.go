package labels

import (
	"fmt"
	"sort"

	"langid-backend/internal/core/types"
)

// Vocabulary is a bijection between language names and the contiguous class
// index range [0, N). It is immutable once built.
type Vocabulary struct {
	id2label []string
	label2id map[string]int
}

// Build derives a vocabulary from a sequence of label names, one per training
// example. Distinct names are sorted lexicographically and assigned indices in
// that order, so any permutation of the same input produces the same mapping.
func Build(names []string) (*Vocabulary, error) {
	seen := make(map[string]struct{}, len(names))
	distinct := make([]string, 0)
	for _, name := range names {
		if name == "" {
			return nil, types.ConfigurationErrorf("label names must be non-empty")
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		distinct = append(distinct, name)
	}

	if len(distinct) == 0 {
		return nil, types.ConfigurationErrorf("no labels provided")
	}

	sort.Strings(distinct)

	return newVocabulary(distinct), nil
}

// BuildFromColumn is Build for the values of a dataset column. An empty value
// set means the column is absent or entirely null.
func BuildFromColumn(column string, values []string) (*Vocabulary, error) {
	if len(values) == 0 {
		return nil, types.ConfigurationErrorf("label column %q is missing or entirely null", column)
	}
	vocab, err := Build(values)
	if err != nil {
		return nil, fmt.Errorf("error building vocabulary from column %q: %w", column, err)
	}
	return vocab, nil
}

// FromMapping reconstructs a vocabulary from a persisted index -> name
// mapping. The indices must cover [0, N) exactly and names must be unique.
func FromMapping(id2label map[int]string) (*Vocabulary, error) {
	if len(id2label) == 0 {
		return nil, types.ConfigurationErrorf("id2label mapping is empty")
	}

	ordered := make([]string, len(id2label))
	seen := make(map[string]int, len(id2label))
	for id, name := range id2label {
		if id < 0 || id >= len(id2label) {
			return nil, types.ConfigurationErrorf("id2label index %d is outside [0, %d)", id, len(id2label))
		}
		if name == "" {
			return nil, types.ConfigurationErrorf("id2label index %d has an empty label", id)
		}
		if other, ok := seen[name]; ok {
			return nil, types.ConfigurationErrorf("label %q is mapped by both index %d and %d", name, other, id)
		}
		seen[name] = id
		ordered[id] = name
	}

	return newVocabulary(ordered), nil
}

func newVocabulary(ordered []string) *Vocabulary {
	label2id := make(map[string]int, len(ordered))
	for i, name := range ordered {
		label2id[name] = i
	}
	return &Vocabulary{id2label: ordered, label2id: label2id}
}

func (v *Vocabulary) Size() int {
	return len(v.id2label)
}

// Labels returns the label names in index order.
func (v *Vocabulary) Labels() []string {
	out := make([]string, len(v.id2label))
	copy(out, v.id2label)
	return out
}

func (v *Vocabulary) Encode(name string) (int, error) {
	id, ok := v.label2id[name]
	if !ok {
		return -1, fmt.Errorf("label %q is not in the vocabulary", name)
	}
	return id, nil
}

func (v *Vocabulary) EncodeAll(names []string) ([]int, error) {
	ids := make([]int, len(names))
	for i, name := range names {
		id, err := v.Encode(name)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (v *Vocabulary) Decode(id int) (string, bool) {
	if id < 0 || id >= len(v.id2label) {
		return "", false
	}
	return v.id2label[id], true
}

// Id2Label returns the mapping with stringified integer keys, the form it
// takes in a checkpoint's config.json.
func (v *Vocabulary) Id2Label() map[string]string {
	out := make(map[string]string, len(v.id2label))
	for i, name := range v.id2label {
		out[fmt.Sprint(i)] = name
	}
	return out
}

func (v *Vocabulary) Label2Id() map[string]int {
	out := make(map[string]int, len(v.label2id))
	for name, id := range v.label2id {
		out[name] = id
	}
	return out
}

func (v *Vocabulary) Equal(other *Vocabulary) bool {
	if other == nil || len(v.id2label) != len(other.id2label) {
		return false
	}
	for i := range v.id2label {
		if v.id2label[i] != other.id2label[i] {
			return false
		}
	}
	return true
}
