package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

func testParams() map[string]*tensor.Tensor[float32] {
	rng := rand.New(rand.NewSource(3))
	return map[string]*tensor.Tensor[float32]{
		"classification.weight": tensor.Randn(tensor.Shape{9, 4}, rng),
		"classification.bias":   tensor.Randn(tensor.Shape{9}, rng),
		"tte.weight":            tensor.Randn(tensor.Shape{1, 4}, rng),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	params := testParams()
	path := filepath.Join(t.TempDir(), "model.esml")
	require.NoError(t, Save(path, params))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(params))
	for name, want := range params {
		got, ok := loaded[name]
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, want.Shape(), got.Shape())
		assert.Equal(t, want.Data(), got.Data())
	}
}

func TestRestoreCopiesInPlace(t *testing.T) {
	params := testParams()
	path := filepath.Join(t.TempDir(), "model.esml")
	require.NoError(t, Save(path, params))

	fresh := map[string]*tensor.Tensor[float32]{
		"classification.weight": tensor.Zeros[float32](tensor.Shape{9, 4}),
		"classification.bias":   tensor.Zeros[float32](tensor.Shape{9}),
		"tte.weight":            tensor.Zeros[float32](tensor.Shape{1, 4}),
	}
	require.NoError(t, Restore(path, fresh))
	assert.Equal(t, params["classification.weight"].Data(), fresh["classification.weight"].Data())
}

func TestRestoreRejectsShapeMismatch(t *testing.T) {
	params := testParams()
	path := filepath.Join(t.TempDir(), "model.esml")
	require.NoError(t, Save(path, params))

	wrong := testParams()
	wrong["tte.weight"] = tensor.Zeros[float32](tensor.Shape{2, 4})
	err := Restore(path, wrong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tte.weight")
}

func TestRestoreRejectsMissingParameter(t *testing.T) {
	params := testParams()
	path := filepath.Join(t.TempDir(), "model.esml")
	require.NoError(t, Save(path, params))

	extra := testParams()
	delete(extra, "tte.weight")
	extra["tte.other"] = tensor.Zeros[float32](tensor.Shape{1})
	err := Restore(path, extra)
	require.Error(t, err)
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	notCheckpoint := filepath.Join(dir, "bogus.esml")
	require.NoError(t, os.WriteFile(notCheckpoint, []byte("not a checkpoint"), 0o644))
	_, err := Load(notCheckpoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a checkpoint")

	path := filepath.Join(dir, "model.esml")
	require.NoError(t, Save(path, testParams()))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-8], 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}
