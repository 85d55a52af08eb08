package app

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protonfusion/internal/config"
	"protonfusion/internal/errs"
	"protonfusion/internal/pipeline"
	"protonfusion/internal/raster"
)

const tableJSON = `{
  "1": {"name": "Hydrogen", "symbol": "H", "atomic_mass": 1.008, "electronegativity": 2.2, "nmr_data": {"spin": "1/2"}},
  "2": {"name": "Helium", "symbol": "He", "atomic_mass": 4.0026, "nmr_data": {"spin": "0"}}
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	tablePath := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(tablePath, []byte(tableJSON), 0o644))

	cfg := config.DefaultConfig()
	cfg.Elements.Path = tablePath
	cfg.Output.Dir = filepath.Join(dir, "uploads")
	cfg.Output.Format = "png"
	cfg.Snapshot.Path = filepath.Join(dir, "snapshots.db")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	a, err := NewApplication(cfg, nil, WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	return pngBytesSized(t, 6, 4)
}

func pngBytesSized(t *testing.T, width, height int) []byte {
	t.Helper()
	img := raster.New(width, height)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 11)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img.ToRGBA()))
	return buf.Bytes()
}

func TestRunBytesPersistsOutputsAndSnapshot(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	ctx := context.Background()

	out, err := a.RunBytes(ctx, "harbor.png", pngBytes(t), pipeline.Request{Mode: pipeline.ModeMutual, Salt: "fixed"})
	require.NoError(t, err)

	code := out.Result.Signature.ShortCode
	want := []string{
		filepath.Join(cfg.Output.Dir, "processed_harbor.png"),
		filepath.Join(cfg.Output.Dir, "quantum_harbor.png"),
		filepath.Join(cfg.Output.Dir, "mirror_harbor.png"),
		filepath.Join(cfg.Output.Dir, "mutual_harbor.png"),
		filepath.Join(cfg.Output.Dir, "composite_"+code+".png"),
	}
	assert.Equal(t, want, out.Files)
	for _, f := range want {
		assert.FileExists(t, f)
	}

	require.NotNil(t, out.Snapshot)
	composite, err := os.ReadFile(want[len(want)-1])
	require.NoError(t, err)
	assert.Equal(t, pipeline.ContentHash(composite), out.Snapshot.ContentHash)
	assert.Equal(t, "mutual", out.Snapshot.Mode)
	assert.Equal(t, "TENET_COMPOSITE_MUTUAL", out.Snapshot.Descriptor)
	assert.Equal(t, out.Result.Signature.GlyphString(), out.Snapshot.Glyph)

	recs, err := a.Snapshots().ByCode(ctx, code)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "harbor.png", recs[0].Image)
	assert.Equal(t, "fusion", recs[0].Emotion)
}

func TestRunBytesFailureWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	ctx := context.Background()

	_, err := a.RunBytes(ctx, "broken.png", []byte("not a png"), pipeline.Request{})
	assert.ErrorIs(t, err, errs.ErrDecodeFailure)

	_, statErr := os.Stat(cfg.Output.Dir)
	assert.True(t, os.IsNotExist(statErr))

	recs, err := a.Snapshots().Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.RunBytes(ctx, "x.png", pngBytes(t), pipeline.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFromDiskWithoutSnapshots(t *testing.T) {
	cfg := testConfig(t)
	cfg.Snapshot.Enabled = false
	a := newTestApp(t, cfg)

	input := filepath.Join(t.TempDir(), "dock.png")
	require.NoError(t, os.WriteFile(input, pngBytes(t), 0o644))

	out, err := a.Run(context.Background(), input, pipeline.Request{Mode: pipeline.ModeDirect})
	require.NoError(t, err)
	assert.Len(t, out.Files, 3)
	assert.Nil(t, out.Snapshot)
	assert.Nil(t, a.Snapshots())
}

func TestTransformWritesSingleOutput(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	input := filepath.Join(t.TempDir(), "dock.png")
	require.NoError(t, os.WriteFile(input, pngBytes(t), 0o644))

	path, err := a.Transform(context.Background(), input, "quantum")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "quantum_dock.png"), path)
	assert.FileExists(t, path)

	_, err = a.Transform(context.Background(), input, "otsu")
	assert.ErrorContains(t, err, "mirror, quantum, standard")
}

func TestRunBytesWriteFailureLeavesNoOutputs(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	ctx := context.Background()

	blocked := filepath.Join(cfg.Output.Dir, "quantum_harbor.png")
	require.NoError(t, os.MkdirAll(blocked, 0o755))

	_, err := a.RunBytes(ctx, "harbor.png", pngBytes(t), pipeline.Request{Mode: pipeline.ModeMutual, Salt: "fixed"})
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "processed_harbor.png"))
	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "quantum_harbor.png", entries[0].Name())

	recs, err := a.Snapshots().Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunBytesSnapshotFailureRemovesOutputs(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	require.NoError(t, a.Snapshots().Close())

	out, err := a.RunBytes(context.Background(), "harbor.png", pngBytes(t), pipeline.Request{Salt: "fixed"})
	require.Error(t, err)
	assert.Nil(t, out)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransformUsesConfiguredFibonacciLength(t *testing.T) {
	input := filepath.Join(t.TempDir(), "dock.png")
	require.NoError(t, os.WriteFile(input, pngBytesSized(t, 16, 4), 0o644))
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Pipeline.FibonacciLength = 12
	cfg.Snapshot.Enabled = false
	a := newTestApp(t, cfg)

	_, err := a.Run(ctx, input, pipeline.Request{Mode: pipeline.ModeDirect, Salt: "fixed"})
	require.NoError(t, err)
	path, err := a.Transform(ctx, input, "standard")
	require.NoError(t, err)

	fused, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "processed_dock.png"))
	require.NoError(t, err)
	single, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fused, single)

	defaultCfg := testConfig(t)
	defaultCfg.Snapshot.Enabled = false
	other := newTestApp(t, defaultCfg)
	otherPath, err := other.Transform(ctx, input, "standard")
	require.NoError(t, err)
	shorter, err := os.ReadFile(otherPath)
	require.NoError(t, err)
	assert.NotEqual(t, single, shorter)
}

func TestRecentSnapshots(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	recs, err := RecentSnapshots(ctx, cfg, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoFileExists(t, cfg.Snapshot.Path)

	a := newTestApp(t, cfg)
	out, err := a.RunBytes(ctx, "harbor.png", pngBytes(t), pipeline.Request{Salt: "fixed"})
	require.NoError(t, err)

	recs, err = RecentSnapshots(ctx, cfg, nil, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, out.Result.Signature.ShortCode, recs[0].EmberID)

	cfg.Snapshot.Enabled = false
	_, err = RecentSnapshots(ctx, cfg, nil, 5)
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
}

func TestNewApplicationErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Elements.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err := NewApplication(cfg, nil)
	assert.ErrorIs(t, err, errs.ErrDataUnavailable)

	cfg = testConfig(t)
	cfg.Codec.Backend = config.BackendOpenCV
	_, err = NewApplication(cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Output.JPEGQuality = 0
	_, err = NewApplication(cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Pipeline.FibonacciLength = 2048
	_, err = NewApplication(cfg, nil)
	assert.Error(t, err)
}

func TestShutdownRunsReleaseOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Snapshot.Enabled = false

	calls := 0
	loader := pipeline.NewLoader(nil)
	saver := pipeline.NewSaver(nil, 0)
	a, err := NewApplication(cfg, nil, WithCodec(loader, saver, func() { calls++ }))
	require.NoError(t, err)

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, 1, calls)
}
