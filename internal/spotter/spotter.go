// Package spotter is the caller-facing query surface: it wires a detector,
// an engine pool, the pipeline, and the matcher from configuration, and
// answers read and match requests for image files or decoded images.
//
// A Spotter keeps no per-request state. Every call receives its image and
// returns its own Reading, so one Spotter can serve concurrent requests.
package spotter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/config"
	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/ocr"
	"github.com/ironsheep/text-spotter/internal/pipeline"
	"github.com/ironsheep/text-spotter/internal/textmatch"
)

// ErrPageTextUnsupported is returned by Text when the OCR engine cannot
// transcribe a whole page.
var ErrPageTextUnsupported = errors.New("ocr engine does not support full-page text")

// Reading is the outcome of one detect-read run.
type Reading struct {
	// Results are sorted top to bottom, then left to right.
	Results []pipeline.Result `json:"results"`

	Candidates []detection.Candidate `json:"candidates,omitempty"`
	ROIs       []geometry.Box        `json:"rois,omitempty"`
	Elapsed    time.Duration         `json:"elapsed"`
}

// MatchReport is a Reading plus the answer to a query over it.
type MatchReport struct {
	Reading *Reading        `json:"reading"`
	Match   textmatch.Match `json:"match"`
}

// Spotter answers text reading and matching requests.
type Spotter struct {
	cache    *imaging.ImageCache
	detector detection.Detector
	pool     *ocr.Pool
	pipeline *pipeline.Pipeline
	matcher  *textmatch.Matcher
	logger   *zap.Logger
	closers  []func() error
}

// Components are prebuilt collaborators for NewWith.
type Components struct {
	Detector detection.Detector
	Pool     *ocr.Pool
	Pipeline pipeline.Options
	Matcher  textmatch.Options
	Load     imaging.LoadOptions
}

// New builds a Spotter from cfg. Engine and detector construction failures
// are returned immediately.
func New(cfg config.Config, logger *zap.Logger) (*Spotter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mode, err := pipeline.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := textmatch.ParseLimitPolicy(cfg.Matcher.OnLimit)
	if err != nil {
		return nil, err
	}

	det, closeDet, err := newDetector(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := ocr.NewPool(cfg.Pipeline.Workers, ocr.TesseractFactory(ocr.TesseractConfig{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		PageSegMode:    cfg.OCR.PageSegMode,
	}))
	if err != nil {
		if closeDet != nil {
			_ = closeDet()
		}
		return nil, fmt.Errorf("failed to create OCR engines: %w", err)
	}

	popts := pipeline.Options{
		Mode:          mode,
		Workers:       cfg.Pipeline.Workers,
		Tolerance:     cfg.Pipeline.Tolerance,
		MinConfidence: config.FloatValue(cfg.Pipeline.MinConfidence, 0.5),
	}
	if cfg.OCR.Preprocess {
		popts.Preprocess = &imaging.PreprocessOptions{
			BlurSigma: cfg.OCR.BlurSigma,
			Invert:    cfg.OCR.Invert,
		}
	}

	s, err := NewWith(Components{
		Detector: det,
		Pool:     pool,
		Pipeline: popts,
		Matcher: textmatch.Options{
			MaxAssignments: cfg.Matcher.MaxAssignments,
			OnLimit:        policy,
			CaseSensitive:  cfg.Matcher.CaseSensitive,
		},
		Load: imaging.LoadOptions{Width: cfg.Image.ResizeWidth, Height: cfg.Image.ResizeHeight},
	}, logger)
	if err != nil {
		_ = pool.Close()
		if closeDet != nil {
			_ = closeDet()
		}
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)
	if closeDet != nil {
		s.closers = append(s.closers, closeDet)
	}
	return s, nil
}

func newDetector(cfg config.Config) (detection.Detector, func() error, error) {
	switch cfg.Detector.Kind {
	case "", "edge":
		return detection.NewEdgeDetector(detection.EdgeConfig{
			MinConfidence: config.FloatValue(cfg.Detector.MinConfidence, 0.5),
			NMSThreshold:  config.FloatValue(cfg.Detector.NMSThreshold, 0.4),
			InputWidth:    cfg.Detector.InputWidth,
			InputHeight:   cfg.Detector.InputHeight,
			Merge:         cfg.Detector.Merge,
		}), nil, nil
	case "tesseract":
		level, err := detection.ParseLevel(cfg.Detector.Level)
		if err != nil {
			return nil, nil, err
		}
		d, err := detection.NewLayoutDetector(detection.LayoutConfig{
			Language:       cfg.OCR.Language,
			TessdataPrefix: cfg.OCR.TessdataPrefix,
			Level:          level,
			MinConfidence:  config.FloatValue(cfg.Detector.MinConfidence, 0.5),
			NMSThreshold:   config.FloatValue(cfg.Detector.NMSThreshold, 0.4),
		})
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown detector kind %q", cfg.Detector.Kind)
}

// NewWith builds a Spotter from prebuilt components. The caller keeps
// ownership of the pool and detector.
func NewWith(c Components, logger *zap.Logger) (*Spotter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p, err := pipeline.New(c.Detector, c.Pool, c.Pipeline, logger.Named("pipeline"))
	if err != nil {
		return nil, err
	}
	return &Spotter{
		cache:    imaging.NewImageCache(c.Load),
		detector: c.Detector,
		pool:     c.Pool,
		pipeline: p,
		matcher:  textmatch.NewMatcher(c.Matcher, logger.Named("matcher")),
		logger:   logger,
	}, nil
}

// LoadImage loads path through the image cache.
func (s *Spotter) LoadImage(path string) (image.Image, error) {
	return s.cache.Load(path)
}

// Decode reads an image from r with the same resizing as LoadImage. The
// result is not cached.
func (s *Spotter) Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, s.cache.Options())
}

// Evict drops path from the image cache and returns how many images are
// still cached.
func (s *Spotter) Evict(path string) int {
	s.cache.Evict(path)
	return s.cache.Len()
}

// EvictAll empties the image cache.
func (s *Spotter) EvictAll() {
	s.cache.Clear()
}

// Dimensions returns the size of path as the spotter sees it.
func (s *Spotter) Dimensions(path string) (*imaging.Dimensions, error) {
	return imaging.GetDimensions(s.cache, path)
}

// Detect runs only the detector.
func (s *Spotter) Detect(img image.Image) ([]detection.Candidate, error) {
	return s.detector.Detect(imaging.ZeroOrigin(img))
}

// Read runs the pipeline over img.
func (s *Spotter) Read(ctx context.Context, img image.Image) (*Reading, error) {
	tr, err := s.pipeline.RunTrace(ctx, img)
	if err != nil {
		return nil, err
	}
	return &Reading{
		Results:    pipeline.SortByPosition(tr.Results),
		Candidates: tr.Candidates,
		ROIs:       tr.ROIs,
		Elapsed:    tr.Elapsed,
	}, nil
}

// Text transcribes all of img as plain text without running the detector.
// Line breaks follow the engine's page layout.
func (s *Spotter) Text(ctx context.Context, img image.Image) (string, error) {
	e, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer s.pool.Release(e)
	pr, ok := e.(ocr.PageReader)
	if !ok {
		return "", ErrPageTextUnsupported
	}
	return pr.Text(imaging.ZeroOrigin(img))
}

// TextFile loads path and transcribes it with Text.
func (s *Spotter) TextFile(ctx context.Context, path string) (string, error) {
	img, err := s.LoadImage(path)
	if err != nil {
		return "", err
	}
	return s.Text(ctx, img)
}

// EngineVersion reports the OCR backend version, or "" when the engine does
// not expose one.
func (s *Spotter) EngineVersion(ctx context.Context) string {
	e, err := s.pool.Acquire(ctx)
	if err != nil {
		return ""
	}
	defer s.pool.Release(e)
	if v, ok := e.(ocr.Versioner); ok {
		return v.Version()
	}
	return ""
}

// ReadFile loads path and runs the pipeline over it.
func (s *Spotter) ReadFile(ctx context.Context, path string) (*Reading, error) {
	img, err := s.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, img)
}

// Query answers phrase over an existing reading.
func (s *Spotter) Query(r *Reading, phrase string) (textmatch.Match, error) {
	return s.matcher.Find(r.Results, phrase)
}

// Match reads img and answers phrase over the results.
func (s *Spotter) Match(ctx context.Context, img image.Image, phrase string) (*MatchReport, error) {
	r, err := s.Read(ctx, img)
	if err != nil {
		return nil, err
	}
	m, err := s.Query(r, phrase)
	if err != nil {
		return nil, err
	}
	return &MatchReport{Reading: r, Match: m}, nil
}

// MatchFile loads path, reads it, and answers phrase. found is false when
// the phrase does not occur; err is reserved for load failures, cancellation,
// and rejected searches.
func (s *Spotter) MatchFile(ctx context.Context, path, phrase string) (geometry.Point, bool, error) {
	img, err := s.LoadImage(path)
	if err != nil {
		return geometry.NotFound, false, err
	}
	rep, err := s.Match(ctx, img, phrase)
	if err != nil {
		return geometry.NotFound, false, err
	}
	return rep.Match.Point, rep.Match.Found(), nil
}

// Annotate draws a reading and an optional match point over img.
func (s *Spotter) Annotate(img image.Image, r *Reading, match geometry.Point) *image.RGBA {
	o := imaging.Overlay{Match: match}
	if r != nil {
		o.Detections = r.ROIs
		o.Words = make([]imaging.Label, len(r.Results))
		for i, res := range r.Results {
			o.Words[i] = imaging.Label{Box: res.Box, Text: res.Text}
		}
	}
	return imaging.Annotate(img, o)
}

// Close releases the engines and detector created by New.
func (s *Spotter) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
