package core

import (
	"os"
	"path/filepath"
	"testing"

	"langid-backend/internal/core/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644))
}

func TestResolveCheckpointDir(t *testing.T) {
	t.Run("Direct", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, `{}`)

		resolved, err := ResolveCheckpointDir(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, resolved)
	})

	t.Run("HighestStep", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, filepath.Join(dir, "checkpoint-500"), `{}`)
		writeConfig(t, filepath.Join(dir, "checkpoint-1650"), `{}`)
		writeConfig(t, filepath.Join(dir, "checkpoint-latest"), `{}`)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), os.ModePerm))

		resolved, err := ResolveCheckpointDir(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "checkpoint-1650"), resolved)
	})

	t.Run("TopLevelConfigWithStepModels", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, `{}`)
		writeConfig(t, filepath.Join(dir, "checkpoint-100"), `{}`)
		writeConfig(t, filepath.Join(dir, "checkpoint-200"), `{}`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "checkpoint-200", OnnxModelFile), []byte("x"), 0644))

		resolved, err := ResolveCheckpointDir(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "checkpoint-200"), resolved)
	})

	t.Run("ExportedModelWins", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, `{}`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, OnnxModelFile), []byte("x"), 0644))
		writeConfig(t, filepath.Join(dir, "checkpoint-300"), `{}`)

		resolved, err := ResolveCheckpointDir(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, resolved)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ResolveCheckpointDir(filepath.Join(t.TempDir(), "missing"))
		assert.True(t, types.IsConfigurationError(err))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ResolveCheckpointDir(t.TempDir())
		assert.True(t, types.IsConfigurationError(err))
	})
}

func TestStepCheckpointDirs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"checkpoint-1650", "checkpoint-50", "checkpoint-500", "checkpoint-final", "runs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), os.ModePerm))
	}

	steps, err := StepCheckpointDirs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "checkpoint-50"),
		filepath.Join(dir, "checkpoint-500"),
		filepath.Join(dir, "checkpoint-1650"),
	}, steps)
}

func TestReadPadTokenId(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"pad_token_id": 7}`)
	id, err := readPadTokenId(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	writeConfig(t, dir, `{"model_type": "xlm-roberta"}`)
	id, err = readPadTokenId(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultPadTokenId), id)
}

func TestLoadPredictorFailsFast(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"id2label": {"0": "English"}}`)

	_, err := LoadPredictor(dir, OnnxOptions{})
	require.Error(t, err)

	var serr *types.StartupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "model", serr.Stage)
	assert.True(t, types.IsConfigurationError(err))
}
