package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner is a test double for CommandRunner.
type scriptedRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(name string, args []string) ([]byte, error)
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	return r.fn(name, args)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

type fakeDoc struct {
	pages int
	fail  map[int]bool
}

func (d fakeDoc) NumPage() int { return d.pages }

func (d fakeDoc) PageText(n int) (string, error) {
	if d.fail[n] {
		return "", errors.New("broken stream")
	}
	return fmt.Sprintf("isi halaman %d", n), nil
}

func TestDocumentExtractCapsAtTwelvePages(t *testing.T) {
	raster := pngBytes(t, 8, 6)
	runner := &scriptedRunner{fn: func(string, []string) ([]byte, error) { return raster, nil }}
	e := NewDocumentExtractor(runner, "")
	e.open = func(string) (pageReader, func() error, error) {
		return fakeDoc{pages: 15, fail: map[int]bool{3: true}}, func() error { return nil }, nil
	}

	var progress []int
	out, err := e.Extract(context.Background(), "deck.pdf", func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Len(t, out.Images, MaxDocumentPages)
	assert.Equal(t, 15, out.TotalPages)
	assert.Equal(t, 12, out.Scanned)
	for _, img := range out.Images {
		assert.Equal(t, "image/jpeg", img.MimeType)
		assert.Equal(t, []byte{0xFF, 0xD8}, img.Data[:2])
	}
	assert.True(t, strings.HasPrefix(out.Text, "[Halaman 1]\nisi halaman 1\n\n[Halaman 2]"))
	assert.Contains(t, out.Text, "[Halaman 3]\n\n\n")
	assert.Contains(t, out.Text, "[Halaman 12]\nisi halaman 12\n\n")
	assert.NotContains(t, out.Text, "[Halaman 13]")

	require.Len(t, progress, 12)
	assert.Equal(t, 9, progress[0])
	assert.Equal(t, 50, progress[11])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}

	require.Len(t, runner.calls, 12)
	first := runner.calls[0]
	assert.Equal(t, "pdftoppm", first[0])
	assert.Equal(t, "144", argAfter(first, "-r"))
	assert.Equal(t, "1", argAfter(first, "-f"))
	assert.Equal(t, "12", argAfter(runner.calls[11], "-l"))
}

func TestDocumentExtractFailsOnRenderError(t *testing.T) {
	runner := &scriptedRunner{fn: func(string, []string) ([]byte, error) { return nil, errors.New("boom") }}
	e := NewDocumentExtractor(runner, "/usr/bin/pdftoppm")
	e.open = func(string) (pageReader, func() error, error) {
		return fakeDoc{pages: 2}, func() error { return nil }, nil
	}
	_, err := e.Extract(context.Background(), "deck.pdf", nil)
	assert.Error(t, err)
}

func TestDocumentExtractRejectsUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))
	_, err := NewDocumentExtractor(nil, "").Extract(context.Background(), path, nil)
	assert.Error(t, err)
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractPackageSamplesSortedMarkup(t *testing.T) {
	files := map[string]string{
		"imsmanifest.xml":      `<manifest identifier="m1"></manifest>`,
		"notes.txt":            "ignored",
		"res/z.html":           "<p>z</p>",
		"res/a.html":           "<html><head><title>Pembuka</title></head><body><p>Halo ASN Pembelajar</p></body></html>",
		"res/LEGACY.HTM":       "<b>legacy</b>",
		"res/b.htm":            "teks <i>miring</i> dan <unterminated",
		"res/c.html":           "c",
		"res/d.html":           "d",
		"res/e.html":           "e",
		"res/f.html":           "f",
		"res/g.html":           "g",
		"res/h.html":           "h",
		"res/long/index.html":  strings.Repeat("é", 3000),
		"res/empty.html":       "",
		"res/zz/deeper.html":   "deep",
		"res/ignored.html.bak": "no",
	}
	out, err := ExtractPackage(writeZip(t, files))
	require.NoError(t, err)

	assert.True(t, out.HasManifest)
	assert.Equal(t, 13, out.MarkupFiles)
	assert.True(t, strings.HasPrefix(out.Text, "STRUKTUR PAKET SCORM:\nMANIFEST XML:\n<manifest identifier=\"m1\"></manifest>\n"))

	var paths []string
	for _, f := range out.Sampled {
		paths = append(paths, f.Path)
	}
	// res/LEGACY.HTM sorts first (upper case); res/empty.html is sampled but empty so skipped.
	assert.Equal(t, []string{"res/LEGACY.HTM", "res/a.html", "res/b.htm", "res/c.html", "res/d.html", "res/e.html", "res/f.html"}, paths)
	assert.Equal(t, "Pembuka", out.Sampled[1].Title)
	assert.Contains(t, out.Text, "\nISI KONTEN FILE (res/b.htm):\nteks  miring  dan  ")
	assert.NotContains(t, out.Text, "unterminated")
	assert.NotContains(t, out.Text, "res/g.html")
	assert.NotContains(t, out.Text, "notes.txt")
}

func TestExtractPackageTruncatesExcerpt(t *testing.T) {
	out, err := ExtractPackage(writeZip(t, map[string]string{
		"index.html": strings.Repeat("é", 3000),
	}))
	require.NoError(t, err)
	assert.False(t, out.HasManifest)
	require.Len(t, out.Sampled, 1)
	assert.Equal(t, MaxPackageExcerpt, out.Sampled[0].Chars)
	assert.Equal(t, "STRUKTUR PAKET SCORM:\n\nISI KONTEN FILE (index.html):\n"+strings.Repeat("é", MaxPackageExcerpt), out.Text)
}

func TestExtractPackageRejectsNonZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o644))
	_, err := ExtractPackage(path)
	assert.Error(t, err)
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "simple", in: "<p>a</p>", want: " a "},
		{name: "unterminated tail", in: "a <br", want: "a  "},
		{name: "limit counts characters", in: "ąćęł", limit: 2, want: "ąć"},
		{name: "no tags", in: "plain", limit: 10, want: "plain"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripTags(tc.in, tc.limit))
		})
	}
}

func TestFrameTimestamps(t *testing.T) {
	assert.Equal(t, []float64{0.5, 5, 9.5}, FrameTimestamps(10))

	short := FrameTimestamps(0.3)
	require.Len(t, short, 3)
	for _, ts := range short {
		assert.GreaterOrEqual(t, ts, 0.0)
		assert.LessOrEqual(t, ts, 0.25+1e-9)
	}
	assert.Equal(t, []float64{0, 0, 0}, FrameTimestamps(0))
}

func TestFrameSamplerCapturesSequentially(t *testing.T) {
	raster := pngBytes(t, 4, 4)
	runner := &scriptedRunner{fn: func(name string, args []string) ([]byte, error) {
		if name == "ffprobe" {
			return []byte(`{"streams":[{"width":4,"height":4}],"format":{"duration":"20.000"}}`), nil
		}
		if argAfter(args, "-ss") == "10.000" {
			return nil, errors.New("decode error")
		}
		return raster, nil
	}}
	s := NewFrameSampler(runner, "", "", nil)
	frames, err := s.Sample(context.Background(), "opening.mp4")
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	require.Len(t, runner.calls, 4)
	assert.Equal(t, "ffprobe", runner.calls[0][0])
	var seeks []string
	for _, call := range runner.calls[1:] {
		seeks = append(seeks, argAfter(call[1:], "-ss"))
	}
	assert.Equal(t, []string{"0.500", "10.000", "19.500"}, seeks)
}

func TestFrameSamplerProbeFailure(t *testing.T) {
	runner := &scriptedRunner{fn: func(string, []string) ([]byte, error) { return nil, errors.New("moov atom not found") }}
	_, err := NewFrameSampler(runner, "", "", nil).Sample(context.Background(), "broken.mp4")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, []byte("asset"), 0o644))
	a, err := Fingerprint(path)
	require.NoError(t, err)
	b, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
}
