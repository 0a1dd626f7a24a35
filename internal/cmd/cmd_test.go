package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
)

const cliGPX = `<?xml version="1.0"?>
<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>%s</name><trkseg>
    <trkpt lat="%f" lon="%f"></trkpt>
    <trkpt lat="%f" lon="%f"></trkpt>
  </trkseg></trk>
</gpx>`

func writeTrack(t *testing.T, dir, name string, lat, lon float64) string {
	t.Helper()
	p := filepath.Join(dir, name+".gpx")
	doc := fmt.Sprintf(cliGPX, name, lat, lon, lat+0.02, lon+0.03)
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	t.Run("json verbose", func(t *testing.T) {
		var buf bytes.Buffer
		l := newLogger(&buf, "JSON", true)
		l.Debug("probe", "zoom", 12)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "DEBUG", rec["level"])
		assert.Equal(t, "probe", rec["msg"])
		assert.EqualValues(t, 12, rec["zoom"])
	})

	t.Run("text suppresses debug", func(t *testing.T) {
		var buf bytes.Buffer
		l := newLogger(&buf, "text", false)
		l.Debug("hidden")
		l.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})
}

func TestOptionsFromConfigFollowsFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	defaults := pipeline.DefaultOptions()

	require.NoError(t, flags.Set("resolution", "777"))
	require.NoError(t, flags.Set("foreground", "#ff0000"))
	require.NoError(t, flags.Set("no-center", "true"))
	t.Cleanup(func() {
		_ = flags.Set("resolution", fmt.Sprint(defaults.Resolution))
		_ = flags.Set("foreground", defaults.Foreground)
		_ = flags.Set("no-center", "false")
	})

	opts := optionsFromConfig()
	assert.Equal(t, 777, opts.Resolution)
	assert.Equal(t, "#ff0000", opts.Foreground)
	assert.True(t, opts.NoCenter)
	assert.Equal(t, defaults.Background, opts.Background)
	assert.Equal(t, defaults.LineThickness, opts.LineThickness)
	assert.NoError(t, opts.Validate())
}

func TestJobName(t *testing.T) {
	assert.Equal(t, "summer", jobName("out/summer.png"))
	assert.Equal(t, "grid.v2", jobName("grid.v2.gif"))
}

func TestRenderCommandBase64(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a", 52.37, 9.73)
	b := writeTrack(t, dir, "b", 48.20, 16.37)

	out, err := execute(t, "render", "--output=", "--pyramid=", "--resolution=120", a, b)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestRenderCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a", 52.37, 9.73)
	output := filepath.Join(dir, "out", "grid.png")

	out, err := execute(t, "render", "--output="+output, "--pyramid=", "--resolution=120", a)
	require.NoError(t, err)
	assert.Empty(t, out)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
}

func TestRenderCommandRejectsPyramidWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a", 52.37, 9.73)

	_, err := execute(t, "render", "--output=", "--pyramid="+filepath.Join(dir, "p.mbtiles"), a)
	assert.Error(t, err)
}

func TestRenderCommandFailsOnBadTrack(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a", 52.37, 9.73)
	bad := filepath.Join(dir, "bad.gpx")
	require.NoError(t, os.WriteFile(bad, []byte("<gpx><trk>"), 0o644))

	out, err := execute(t, "render", "--output=", "--pyramid=", a, bad)
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	writeTrack(t, dir, "a", 52.37, 9.73)
	writeTrack(t, dir, "b", 48.20, 16.37)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.gpx"), []byte("<gpx><trk>"), 0o644))

	manifest := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
defaults:
  resolution: 120
jobs:
  - name: good
    inputs: [a.gpx, b.gpx]
    output: out/good.png
  - name: broken
    inputs: [a.gpx, bad.gpx]
    output: out/broken.png
`), 0o644))

	_, err := execute(t, "batch", "--manifest="+manifest, "--progress=false", "--workers=2", "--allow-failures=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 jobs failed")

	_, err = os.Stat(filepath.Join(dir, "out", "good.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out", "broken.png"))
	assert.True(t, os.IsNotExist(err))

	_, err = execute(t, "batch", "--manifest="+manifest, "--progress=false", "--workers=2", "--allow-failures=true")
	assert.NoError(t, err)
}

func TestBatchCommandRequiresManifest(t *testing.T) {
	_, err := execute(t, "batch", "--manifest=", "--progress=false")
	assert.Error(t, err)
}
