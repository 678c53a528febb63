package labels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"langid-backend/internal/core/types"
)

const ConfigFile = "config.json"

// WriteConfig merges the vocabulary's id2label/label2id/num_labels into the checkpoint's
// config.json, leaving every other key untouched. The file is created if the
// fitter did not write one.
func (v *Vocabulary) WriteConfig(dir string) error {
	return v.WriteConfigFile(filepath.Join(dir, ConfigFile))
}

// WriteConfigFile is WriteConfig for an explicit file path.
func (v *Vocabulary) WriteConfigFile(path string) error {
	dir := filepath.Dir(path)

	cfg := make(map[string]json.RawMessage)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("error parsing existing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("error reading %s: %w", path, err)
	}

	id2label, err := marshalJSON(v.Id2Label())
	if err != nil {
		return err
	}
	label2id, err := marshalJSON(v.Label2Id())
	if err != nil {
		return err
	}
	cfg["id2label"] = id2label
	cfg["label2id"] = label2id
	cfg["num_labels"] = json.RawMessage(strconv.Itoa(v.Size()))

	out, err := marshalJSON(cfg)
	if err != nil {
		return err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, out, "", "  "); err != nil {
		return fmt.Errorf("error formatting %s: %w", path, err)
	}
	indented.WriteByte('\n')

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("error creating checkpoint dir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, indented.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// marshalJSON is json.Marshal without HTML escaping so label names are stored
// verbatim.
func marshalJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("error encoding label metadata: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type labelConfig struct {
	Id2Label map[string]string `json:"id2label"`
	Label2Id map[string]int    `json:"label2id"`
}

// ReadConfig loads the vocabulary persisted in a checkpoint's config.json.
// id2label is authoritative; when label2id is present it must be its exact
// inverse.
func ReadConfig(dir string) (*Vocabulary, error) {
	path := filepath.Join(dir, ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.ConfigurationErrorf("checkpoint config %s does not exist", path)
		}
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var cfg labelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, types.ConfigurationErrorf("checkpoint config %s is not valid json: %w", path, err)
	}

	if len(cfg.Id2Label) == 0 {
		return nil, types.ConfigurationErrorf("checkpoint config %s has no id2label mapping", path)
	}

	id2label := make(map[int]string, len(cfg.Id2Label))
	for key, name := range cfg.Id2Label {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, types.ConfigurationErrorf("id2label key %q in %s is not an integer", key, path)
		}
		if _, dup := id2label[id]; dup {
			return nil, types.ConfigurationErrorf("id2label index %d appears more than once in %s", id, path)
		}
		id2label[id] = name
	}

	vocab, err := FromMapping(id2label)
	if err != nil {
		return nil, fmt.Errorf("invalid label mapping in %s: %w", path, err)
	}

	if cfg.Label2Id != nil {
		if len(cfg.Label2Id) != vocab.Size() {
			return nil, types.ConfigurationErrorf("label2id has %d entries but id2label has %d in %s", len(cfg.Label2Id), vocab.Size(), path)
		}
		for name, id := range cfg.Label2Id {
			if decoded, ok := vocab.Decode(id); !ok || decoded != name {
				return nil, types.ConfigurationErrorf("label2id[%q] = %d disagrees with id2label in %s", name, id, path)
			}
		}
	}

	return vocab, nil
}
