package core

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"langid-backend/internal/core/types"
	"langid-backend/internal/labels"
)

const (
	OnnxModelFile = "model.onnx"
	TokenizerFile = "tokenizer.json"

	checkpointDirPrefix = "checkpoint-"
)

// ResolveCheckpointDir returns dir itself when it holds an exported model.
// Otherwise dir is treated as a training output directory and the
// checkpoint-<step> subdirectory with the highest step is returned. A dir with
// only a config.json and no step subdirectories is returned as is so the
// missing model is reported by the loader.
func ResolveCheckpointDir(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, OnnxModelFile)); err == nil {
		return dir, nil
	}

	steps, err := StepCheckpointDirs(dir)
	if err != nil {
		return "", err
	}
	if len(steps) > 0 {
		return steps[len(steps)-1], nil
	}

	if _, err := os.Stat(filepath.Join(dir, labels.ConfigFile)); err == nil {
		return dir, nil
	}
	return "", types.ConfigurationErrorf("no %s found in %s and no checkpoint-<step> subdirectories", labels.ConfigFile, dir)
}

// StepCheckpointDirs lists the checkpoint-<step> subdirectories of a training
// output directory in ascending step order.
func StepCheckpointDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.ConfigurationErrorf("checkpoint directory %s does not exist", dir)
		}
		return nil, fmt.Errorf("error reading checkpoint directory %s: %w", dir, err)
	}

	type stepDir struct {
		name string
		step int
	}
	var found []stepDir
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), checkpointDirPrefix) {
			continue
		}
		step, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), checkpointDirPrefix))
		if err != nil {
			continue
		}
		found = append(found, stepDir{name: entry.Name(), step: step})
	}

	slices.SortFunc(found, func(a, b stepDir) int { return cmp.Compare(a.step, b.step) })

	out := make([]string, len(found))
	for i, d := range found {
		out[i] = filepath.Join(dir, d.name)
	}
	return out, nil
}

type modelConfig struct {
	PadTokenId *int64 `json:"pad_token_id"`
}

func readPadTokenId(dir string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(dir, labels.ConfigFile))
	if err != nil {
		return 0, types.ConfigurationErrorf("error reading checkpoint config in %s: %w", dir, err)
	}

	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return 0, types.ConfigurationErrorf("checkpoint config in %s is not valid json: %w", dir, err)
	}

	if cfg.PadTokenId == nil {
		return DefaultPadTokenId, nil
	}
	return *cfg.PadTokenId, nil
}
