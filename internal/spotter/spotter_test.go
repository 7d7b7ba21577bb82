package spotter_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/text-spotter/internal/config"
	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/ocr"
	"github.com/ironsheep/text-spotter/internal/spotter"
	"github.com/ironsheep/text-spotter/internal/spotter/spottertest"
	"github.com/ironsheep/text-spotter/internal/textmatch"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

var words = []ocr.Word{
	spottertest.Word("Exit", 100, 40, 30, 12),
	spottertest.Word("Emergency", 10, 10, 60, 12),
	spottertest.Word("Exit", 75, 10, 30, 12),
}

func TestReadFile_SortsByPosition(t *testing.T) {
	s := spottertest.New(t, words...)
	path := writePNG(t, 200, 100)

	r, err := s.ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(r.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(r.Results))
	}
	if r.Results[0].Text != "Emergency" || r.Results[1].Box.X != 75 || r.Results[2].Box.Y != 40 {
		t.Errorf("results not sorted by position: %+v", r.Results)
	}
	if len(r.ROIs) != 1 || len(r.Candidates) != 1 {
		t.Errorf("trace: %d ROIs, %d candidates", len(r.ROIs), len(r.Candidates))
	}
}

func TestMatchFile(t *testing.T) {
	s := spottertest.New(t, words...)
	path := writePNG(t, 200, 100)

	tests := []struct {
		phrase    string
		wantPoint geometry.Point
		wantFound bool
	}{
		// Emergency center (40,16), the nearer Exit center (90,16).
		{"emergency exit", geometry.Point{X: 65, Y: 16}, true},
		{"exit", geometry.Point{X: 90, Y: 16}, true},
		{"entrance", geometry.NotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			p, found, err := s.MatchFile(context.Background(), path, tt.phrase)
			if err != nil {
				t.Fatalf("MatchFile failed: %v", err)
			}
			if p != tt.wantPoint || found != tt.wantFound {
				t.Errorf("MatchFile(%q) = %v, %v; want %v, %v", tt.phrase, p, found, tt.wantPoint, tt.wantFound)
			}
		})
	}
}

func TestMatchFile_EmptyPath(t *testing.T) {
	s := spottertest.New(t, words...)
	_, found, err := s.MatchFile(context.Background(), "", "exit")
	if !errors.Is(err, imaging.ErrEmptyPath) || found {
		t.Errorf("MatchFile(\"\") = %v, %v; want ErrEmptyPath", found, err)
	}
}

func TestMatch_RejectPolicy(t *testing.T) {
	var many []ocr.Word
	for i := 0; i < 20; i++ {
		many = append(many, spottertest.Word("go", i*9, 0, 8, 8), spottertest.Word("on", i*9, 20, 8, 8))
	}
	s := spottertest.NewWithMatcher(t, textmatch.Options{MaxAssignments: 10, OnLimit: textmatch.Reject}, many...)

	img := image.NewRGBA(image.Rect(0, 0, 200, 40))
	_, err := s.Match(context.Background(), img, "go on go on")
	if !errors.Is(err, textmatch.ErrSearchLimit) {
		t.Errorf("expected ErrSearchLimit, got %v", err)
	}
}

func TestQueryReusesReading(t *testing.T) {
	s := spottertest.New(t, words...)
	r, err := s.Read(context.Background(), image.NewRGBA(image.Rect(0, 0, 200, 100)))
	if err != nil {
		t.Fatal(err)
	}
	for _, phrase := range []string{"Emergency", "EXIT", "emergency exit"} {
		m, err := s.Query(r, phrase)
		if err != nil || !m.Found() {
			t.Errorf("Query(%q) = %+v, %v", phrase, m, err)
		}
	}
}

func TestAnnotate(t *testing.T) {
	s := spottertest.New(t, words...)
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	r, err := s.Read(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	out := s.Annotate(img, r, geometry.Point{X: 65, Y: 16})
	if out.Bounds() != img.Bounds() {
		t.Errorf("annotated bounds = %v", out.Bounds())
	}
}

func TestDetect(t *testing.T) {
	s := spottertest.New(t)
	cands, err := s.Detect(image.NewRGBA(image.Rect(10, 10, 60, 40)))
	if err != nil {
		t.Fatal(err)
	}
	want := []detection.Candidate{{Box: geometry.Box{Width: 50, Height: 30}, Confidence: 1}}
	if len(cands) != 1 || cands[0] != want[0] {
		t.Errorf("Detect = %+v, want %+v", cands, want)
	}
}

func TestDecode(t *testing.T) {
	s := spottertest.New(t, words...)
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatal(err)
	}
	img, err := s.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("decoded size = %dx%d", b.Dx(), b.Dy())
	}
	if _, err := s.Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error for garbage input")
	}
}

func TestTextFile(t *testing.T) {
	s := spottertest.New(t, words...)
	path := writePNG(t, 200, 100)

	text, err := s.TextFile(context.Background(), path)
	if err != nil {
		t.Fatalf("TextFile failed: %v", err)
	}
	if text != "Exit Emergency Exit\n" {
		t.Errorf("TextFile = %q", text)
	}
	if v := s.EngineVersion(context.Background()); v != spottertest.SceneVersion {
		t.Errorf("EngineVersion = %q, want %q", v, spottertest.SceneVersion)
	}
}

func TestEvict(t *testing.T) {
	s := spottertest.New(t, words...)
	a, b := writePNG(t, 20, 20), writePNG(t, 30, 30)
	for _, p := range []string{a, b} {
		if _, err := s.LoadImage(p); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.Evict(a); n != 1 {
		t.Errorf("Evict left %d cached images, want 1", n)
	}
	if n := s.Evict(a); n != 1 {
		t.Errorf("second Evict of the same path left %d, want 1", n)
	}
	s.EvictAll()
	if n := s.Evict(b); n != 0 {
		t.Errorf("cache not empty after EvictAll: %d", n)
	}
}

// wordsOnly recognizes nothing and has no page or version support.
type wordsOnly struct{}

func (wordsOnly) Recognize(image.Image, geometry.Box, float64) ([]ocr.Word, error) { return nil, nil }
func (wordsOnly) Close() error { return nil }

func TestText_EngineWithoutPageSupport(t *testing.T) {
	pool, err := ocr.NewPool(1, func() (ocr.Engine, error) { return wordsOnly{}, nil })
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	s, err := spotter.NewWith(spotter.Components{Detector: spottertest.WholeImage{}, Pool: pool}, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Text(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, spotter.ErrPageTextUnsupported) {
		t.Errorf("Text error = %v, want ErrPageTextUnsupported", err)
	}
	if v := s.EngineVersion(context.Background()); v != "" {
		t.Errorf("EngineVersion = %q, want empty", v)
	}
	if pool.Size() != 1 {
		t.Fatal("pool size changed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("engine not released after Text: %v", err)
	}
	pool.Release(e)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Mode = "warp"
	if _, err := spotter.New(cfg, nil); err == nil {
		t.Error("expected error for bad pipeline mode")
	}

	cfg = config.Default()
	cfg.OCR.Language = "invalid_language_code_xyz"
	s, err := spotter.New(cfg, nil)
	if err == nil {
		_ = s.Close()
		t.Fatal("expected engine construction error for unknown language")
	}
	if !errors.Is(err, ocr.ErrEngineInit) {
		t.Errorf("expected ErrEngineInit, got %v", err)
	}
}
