package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"langid-backend/internal/core/types"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultTextColumn  = "Text"
	DefaultLabelColumn = "language"
)

// Cell values read as missing, the same set pandas treats as NA by default.
var nullValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNull(value string) bool {
	_, ok := nullValues[value]
	return ok
}

type Example struct {
	Text  string
	Label string
}

type Dataset struct {
	TextColumn  string
	LabelColumn string
	Examples    []Example

	// Rows discarded because the text or label cell was missing.
	Dropped int
}

func Load(path, textColumn, labelColumn string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.ConfigurationErrorf("dataset %s does not exist", path)
		}
		return nil, fmt.Errorf("error opening dataset %s: %w", path, err)
	}
	defer file.Close()

	ds, err := Read(file, textColumn, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("error loading dataset %s: %w", path, err)
	}

	slog.Info("loaded dataset", "path", path, "examples", len(ds.Examples), "dropped", ds.Dropped)

	return ds, nil
}

// Read parses a CSV dataset with a header row. A leading byte-order marker is
// ignored. Both columns must be present in the header; rows with a missing
// text or label are dropped and the remaining rows keep file order.
func Read(r io.Reader, textColumn, labelColumn string) (*Dataset, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, types.ConfigurationErrorf("dataset is empty, expected columns %q and %q", textColumn, labelColumn)
		}
		return nil, fmt.Errorf("error reading dataset header: %w", err)
	}

	textIdx, labelIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == textColumn && textIdx < 0 {
			textIdx = i
		}
		if name == labelColumn && labelIdx < 0 {
			labelIdx = i
		}
	}

	var missing []string
	if textIdx < 0 {
		missing = append(missing, textColumn)
	}
	if labelIdx < 0 {
		missing = append(missing, labelColumn)
	}
	if len(missing) > 0 {
		return nil, types.ConfigurationErrorf("dataset must contain %q and %q columns, missing: %s", textColumn, labelColumn, strings.Join(missing, ", "))
	}

	ds := &Dataset{TextColumn: textColumn, LabelColumn: labelColumn}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading dataset row: %w", err)
		}

		if textIdx >= len(record) || labelIdx >= len(record) {
			ds.Dropped++
			continue
		}

		text, label := record[textIdx], record[labelIdx]
		if isNull(text) || isNull(label) {
			ds.Dropped++
			continue
		}

		ds.Examples = append(ds.Examples, Example{Text: text, Label: label})
	}

	return ds, nil
}

func (d *Dataset) Texts() []string {
	texts := make([]string, len(d.Examples))
	for i, ex := range d.Examples {
		texts[i] = ex.Text
	}
	return texts
}

func (d *Dataset) Labels() []string {
	labels := make([]string, len(d.Examples))
	for i, ex := range d.Examples {
		labels[i] = ex.Label
	}
	return labels
}
