package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/ocr"
)

type fakeDetector struct {
	candidates []detection.Candidate
	err        error

	mu   sync.Mutex
	seen image.Image
}

func (d *fakeDetector) Detect(img image.Image) ([]detection.Candidate, error) {
	d.mu.Lock()
	d.seen = img
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	out := make([]detection.Candidate, len(d.candidates))
	copy(out, d.candidates)
	return out, nil
}

// sceneEngine "recognizes" every scene word whose box center lies in the ROI.
type sceneEngine struct {
	scene  []ocr.Word
	failOn map[geometry.Box]bool

	inUse  atomic.Int32
	shared *atomic.Bool

	mu   sync.Mutex
	seen image.Image
}

func (e *sceneEngine) Recognize(img image.Image, roi geometry.Box, minConfidence float64) ([]ocr.Word, error) {
	if e.inUse.Add(1) > 1 {
		e.shared.Store(true)
	}
	defer e.inUse.Add(-1)

	e.mu.Lock()
	e.seen = img
	e.mu.Unlock()

	// Vary completion order between regions.
	time.Sleep(time.Duration(roi.X%7) * 100 * time.Microsecond)

	if e.failOn[roi] {
		return nil, errors.New("engine exploded")
	}
	var out []ocr.Word
	for _, w := range e.scene {
		c := w.Box.Center()
		if (image.Point{X: c.X, Y: c.Y}).In(roi.Rect()) && w.Confidence >= minConfidence {
			out = append(out, w)
		}
	}
	return out, nil
}

func (e *sceneEngine) Close() error { return nil }

type fixture struct {
	pool    *ocr.Pool
	engines []*sceneEngine
	shared  *atomic.Bool
}

func newFixture(t *testing.T, size int, scene []ocr.Word, failOn map[geometry.Box]bool) *fixture {
	t.Helper()
	f := &fixture{shared: &atomic.Bool{}}
	pool, err := ocr.NewPool(size, func() (ocr.Engine, error) {
		e := &sceneEngine{scene: scene, failOn: failOn, shared: f.shared}
		f.engines = append(f.engines, e)
		return e, nil
	})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	f.pool = pool
	return f
}

func blankImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func word(text string, x, y int, conf float64) ocr.Word {
	return ocr.Word{Text: text, Box: geometry.Box{X: x, Y: y, Width: 20, Height: 10}, Confidence: conf}
}

func candidate(x, y, w, h int) detection.Candidate {
	return detection.Candidate{Box: geometry.Box{X: x, Y: y, Width: w, Height: h}, Confidence: 0.9}
}

var scene = []ocr.Word{
	word("hello", 10, 10, 0.95),
	word("world", 40, 10, 0.90),
	word("hello", 120, 60, 0.85),
	word("faint", 160, 80, 0.20),
	word("again", 80, 40, 0.75),
}

func TestSequentialAndConcurrentAgree(t *testing.T) {
	tests := []struct {
		name       string
		candidates []detection.Candidate
		wantWords  int
	}{
		{"no regions", nil, 0},
		{"one region", []detection.Candidate{candidate(5, 5, 30, 15)}, 1},
		{"many overlapping regions", []detection.Candidate{
			candidate(0, 0, 70, 30),
			candidate(5, 5, 60, 20),
			candidate(30, 0, 40, 30),
			candidate(100, 50, 60, 30),
			candidate(110, 55, 50, 20),
			candidate(70, 30, 40, 30),
			candidate(150, 70, 40, 25),
			candidate(0, 0, 200, 100),
		}, -1},
	}

	img := blankImage(200, 100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{candidates: tt.candidates}
			f := newFixture(t, 3, scene, nil)

			opts := Options{Tolerance: 2, MinConfidence: 0.5}
			opts.Mode = Sequential
			seq, err := New(det, f.pool, opts, nil)
			if err != nil {
				t.Fatal(err)
			}
			opts.Mode = Concurrent
			con, err := New(det, f.pool, opts, nil)
			if err != nil {
				t.Fatal(err)
			}

			want, err := seq.Run(context.Background(), img)
			if err != nil {
				t.Fatalf("sequential Run failed: %v", err)
			}
			for i := 0; i < 5; i++ {
				got, err := con.Run(context.Background(), img)
				if err != nil {
					t.Fatalf("concurrent Run failed: %v", err)
				}
				if !reflect.DeepEqual(Histogram(got), Histogram(want)) {
					t.Fatalf("histograms differ:\nconcurrent %v\nsequential %v", Histogram(got), Histogram(want))
				}
				if !SameTexts(got, want) {
					t.Fatal("SameTexts disagrees with histogram comparison")
				}
			}

			if tt.wantWords >= 0 && len(want) != tt.wantWords {
				t.Errorf("got %d words, want %d", len(want), tt.wantWords)
			}
			if f.shared.Load() {
				t.Error("an engine was used by two tasks at once")
			}
			for _, r := range want {
				if r.Text == "faint" {
					t.Error("low-confidence word should be filtered")
				}
			}
		})
	}
}

func TestRun_DetectorErrorMeansNoDetections(t *testing.T) {
	det := &fakeDetector{err: errors.New("model missing")}
	f := newFixture(t, 1, scene, nil)
	p, err := New(det, f.pool, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.Run(context.Background(), blankImage(200, 100))
	if err != nil {
		t.Fatalf("Run should not fail on detector error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestRun_RegionErrorsAreSkipped(t *testing.T) {
	img := blankImage(200, 100)
	good := candidate(5, 5, 30, 15)
	bad := candidate(110, 55, 30, 15)
	badROI := geometry.ExpandROI(bad.Box, 0, 200, 100)

	for _, mode := range []Mode{Sequential, Concurrent} {
		t.Run(string(mode), func(t *testing.T) {
			det := &fakeDetector{candidates: []detection.Candidate{good, bad}}
			f := newFixture(t, 2, scene, map[geometry.Box]bool{badROI: true})
			p, err := New(det, f.pool, Options{Mode: mode}, nil)
			if err != nil {
				t.Fatal(err)
			}

			tr, err := p.RunTrace(context.Background(), img)
			if err != nil {
				t.Fatalf("RunTrace failed: %v", err)
			}
			if tr.RegionErrors != 1 {
				t.Errorf("RegionErrors = %d, want 1", tr.RegionErrors)
			}
			if len(tr.Results) != 1 || tr.Results[0].Text != "hello" {
				t.Errorf("Results = %+v, want the good region's word only", tr.Results)
			}
		})
	}
}

func TestRun_CanceledContext(t *testing.T) {
	img := blankImage(200, 100)
	for _, mode := range []Mode{Sequential, Concurrent} {
		t.Run(string(mode), func(t *testing.T) {
			det := &fakeDetector{candidates: []detection.Candidate{candidate(5, 5, 30, 15), candidate(40, 5, 30, 15)}}
			f := newFixture(t, 1, scene, nil)
			p, err := New(det, f.pool, Options{Mode: mode}, nil)
			if err != nil {
				t.Fatal(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if _, err := p.Run(ctx, img); !errors.Is(err, context.Canceled) {
				t.Errorf("Run with canceled context = %v, want context.Canceled", err)
			}
		})
	}
}

type gateEngine struct {
	gate chan struct{}
}

func (e *gateEngine) Recognize(image.Image, geometry.Box, float64) ([]ocr.Word, error) {
	<-e.gate
	return []ocr.Word{word("x", 0, 0, 1)}, nil
}

func (e *gateEngine) Close() error { return nil }

func TestRun_CancelWhileRegionsInFlight(t *testing.T) {
	gate := make(chan struct{})
	pool, err := ocr.NewPool(2, func() (ocr.Engine, error) { return &gateEngine{gate: gate}, nil })
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	var cands []detection.Candidate
	for i := 0; i < 6; i++ {
		cands = append(cands, candidate(i*30, 0, 20, 20))
	}
	p, err := New(&fakeDetector{candidates: cands}, pool, Options{Mode: Concurrent}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, blankImage(200, 100))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(gate)

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_TraceROIsAreExpanded(t *testing.T) {
	cands := []detection.Candidate{candidate(50, 50, 20, 10), candidate(190, 95, 20, 10)}
	f := newFixture(t, 1, scene, nil)
	p, err := New(&fakeDetector{candidates: cands}, f.pool, Options{Tolerance: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tr, err := p.RunTrace(context.Background(), blankImage(200, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.ROIs) != 2 {
		t.Fatalf("ROIs = %d, want 2", len(tr.ROIs))
	}
	for i, c := range cands {
		if want := geometry.ExpandROI(c.Box, 5, 200, 100); tr.ROIs[i] != want {
			t.Errorf("ROI %d = %+v, want %+v", i, tr.ROIs[i], want)
		}
		r := tr.ROIs[i]
		if r.X+r.Width > 200 || r.Y+r.Height > 100 {
			t.Errorf("ROI %d escapes image: %+v", i, r)
		}
	}
}

func TestRun_NormalizesOriginAndPreprocesses(t *testing.T) {
	big := blankImage(300, 200)
	sub := big.SubImage(image.Rect(50, 50, 250, 150))

	det := &fakeDetector{candidates: []detection.Candidate{candidate(5, 5, 30, 15)}}
	f := newFixture(t, 1, scene, nil)
	p, err := New(det, f.pool, Options{Preprocess: &imaging.PreprocessOptions{}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), sub); err != nil {
		t.Fatal(err)
	}

	if det.seen.Bounds().Min != (image.Point{}) {
		t.Errorf("detector saw origin %v, want (0,0)", det.seen.Bounds().Min)
	}
	eng := f.engines[0]
	if eng.seen == nil || eng.seen == det.seen {
		t.Error("engine should receive the preprocessed image, not the detector's")
	}
	if eng.seen.Bounds() != image.Rect(0, 0, 200, 100) {
		t.Errorf("engine image bounds = %v", eng.seen.Bounds())
	}
	if c := color.GrayModel.Convert(eng.seen.At(0, 0)).(color.Gray); c.Y != 255 && c.Y != 0 {
		t.Errorf("preprocessed pixel = %d, want binary", c.Y)
	}
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t, 2, nil, nil)
	det := &fakeDetector{}

	if _, err := New(nil, f.pool, Options{}, nil); err == nil {
		t.Error("expected error for nil detector")
	}
	if _, err := New(det, nil, Options{}, nil); err == nil {
		t.Error("expected error for nil pool")
	}
	if _, err := New(det, f.pool, Options{Mode: "warp"}, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := New(det, f.pool, Options{Workers: -1}, nil); err == nil {
		t.Error("expected error for negative workers")
	}

	p, err := New(det, f.pool, Options{Workers: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Options().Workers != 2 || p.Options().Mode != Concurrent {
		t.Errorf("effective options = %+v, want 2 workers, concurrent", p.Options())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Concurrent, false},
		{"concurrent", Concurrent, false},
		{"Sequential", Sequential, false},
		{"parallel", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
