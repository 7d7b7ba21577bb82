package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/metrics"
	"github.com/ironsheep/text-spotter/internal/ocr"
)

// Mode selects how regions are processed.
type Mode string

const (
	Sequential Mode = "sequential"
	Concurrent Mode = "concurrent"
)

// ParseMode accepts "sequential" or "concurrent"; empty means concurrent.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Concurrent:
		return Concurrent, nil
	case Sequential:
		return Sequential, nil
	}
	return "", fmt.Errorf("unknown pipeline mode %q (want sequential or concurrent)", s)
}

// Options are the per-pipeline parameters.
type Options struct {
	Mode Mode

	// Workers bounds the number of in-flight region tasks in concurrent
	// mode. Zero, or a value above the pool size, uses the pool size.
	Workers int

	// Tolerance is the padding in pixels added around each detected box.
	Tolerance int

	// MinConfidence is the per-word OCR confidence threshold (0.0 to 1.0).
	MinConfidence float64

	// Preprocess, when set, binarizes the image once before recognition.
	// Detection always sees the original image.
	Preprocess *imaging.PreprocessOptions
}

// Result is one recognized word as seen by the matcher.
type Result struct {
	Text string       `json:"text"`
	Box  geometry.Box `json:"box"`
}

// Trace records the intermediate products of a run for diagnostics.
type Trace struct {
	Candidates   []detection.Candidate `json:"candidates"`
	ROIs         []geometry.Box        `json:"rois"`
	Results      []Result              `json:"results"`
	RegionErrors int                   `json:"region_errors"`
	Elapsed      time.Duration         `json:"elapsed"`
}

// Pipeline binds a detector and an engine pool with fixed options. It holds
// no per-run state and is safe for concurrent use.
type Pipeline struct {
	detector detection.Detector
	pool     *ocr.Pool
	opts     Options
	logger   *zap.Logger
}

// New validates opts and returns a Pipeline.
func New(detector detection.Detector, pool *ocr.Pool, opts Options, logger *zap.Logger) (*Pipeline, error) {
	if detector == nil {
		return nil, errors.New("pipeline: detector is nil")
	}
	if pool == nil {
		return nil, errors.New("pipeline: engine pool is nil")
	}
	if opts.Mode == "" {
		opts.Mode = Concurrent
	}
	if opts.Mode != Sequential && opts.Mode != Concurrent {
		return nil, fmt.Errorf("pipeline: unknown mode %q", opts.Mode)
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("pipeline: workers must be >= 0, got %d", opts.Workers)
	}
	if opts.Workers == 0 || opts.Workers > pool.Size() {
		opts.Workers = pool.Size()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{detector: detector, pool: pool, opts: opts, logger: logger}, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run detects and reads text in img.
func (p *Pipeline) Run(ctx context.Context, img image.Image) ([]Result, error) {
	tr, err := p.RunTrace(ctx, img)
	if err != nil {
		return nil, err
	}
	return tr.Results, nil
}

// RunTrace is Run plus the intermediate candidates and regions.
func (p *Pipeline) RunTrace(ctx context.Context, img image.Image) (*Trace, error) {
	start := time.Now()
	img = imaging.ZeroOrigin(img)
	bounds := img.Bounds()

	candidates, err := p.detector.Detect(img)
	if err != nil {
		p.logger.Warn("detection failed; treating as no detections", zap.Error(err))
		candidates = nil
	}
	metrics.PipelineStageDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	rois := make([]geometry.Box, len(candidates))
	for i, c := range candidates {
		rois[i] = geometry.ExpandROI(c.Box, p.opts.Tolerance, bounds.Dx(), bounds.Dy())
	}
	metrics.PipelineRegionsTotal.Add(float64(len(rois)))

	ocrImg := img
	if p.opts.Preprocess != nil && len(rois) > 0 {
		ocrImg = imaging.Preprocess(img, *p.opts.Preprocess)
	}

	recognizeStart := time.Now()
	slots := make([][]ocr.Word, len(rois))
	var failed atomic.Int32
	if p.opts.Mode == Sequential {
		err = p.recognizeSequential(ctx, ocrImg, rois, slots, &failed)
	} else {
		err = p.recognizeConcurrent(ctx, ocrImg, rois, slots, &failed)
	}
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues(string(p.opts.Mode), "canceled").Inc()
		return nil, err
	}
	metrics.PipelineStageDuration.WithLabelValues("recognize").Observe(time.Since(recognizeStart).Seconds())

	results := make([]Result, 0)
	for _, words := range slots {
		for _, w := range words {
			results = append(results, Result{Text: w.Text, Box: w.Box})
		}
	}

	elapsed := time.Since(start)
	metrics.PipelineWordsTotal.Add(float64(len(results)))
	metrics.PipelineStageDuration.WithLabelValues("total").Observe(elapsed.Seconds())
	metrics.PipelineRunsTotal.WithLabelValues(string(p.opts.Mode), "ok").Inc()

	p.logger.Debug("pipeline run complete",
		zap.String("mode", string(p.opts.Mode)),
		zap.Int("candidates", len(candidates)),
		zap.Int("words", len(results)),
		zap.Int32("region_errors", failed.Load()),
		zap.Duration("elapsed", elapsed),
	)

	return &Trace{
		Candidates:   candidates,
		ROIs:         rois,
		Results:      results,
		RegionErrors: int(failed.Load()),
		Elapsed:      elapsed,
	}, nil
}

func (p *Pipeline) recognizeSequential(ctx context.Context, img image.Image, rois []geometry.Box, slots [][]ocr.Word, failed *atomic.Int32) error {
	if len(rois) == 0 {
		return nil
	}
	eng, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.pool.Release(eng)

	for i, roi := range rois {
		if err := ctx.Err(); err != nil {
			return err
		}
		slots[i] = p.recognize(eng, img, i, roi, failed)
	}
	return nil
}

func (p *Pipeline) recognizeConcurrent(ctx context.Context, img image.Image, rois []geometry.Box, slots [][]ocr.Word, failed *atomic.Int32) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, roi := range rois {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			eng, err := p.pool.Acquire(gctx)
			if err != nil {
				return err
			}
			defer p.pool.Release(eng)
			slots[i] = p.recognize(eng, img, i, roi, failed)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return ctx.Err()
}

// recognize runs one region. Failures are logged and yield no words.
func (p *Pipeline) recognize(eng ocr.Engine, img image.Image, index int, roi geometry.Box, failed *atomic.Int32) []ocr.Word {
	words, err := eng.Recognize(img, roi, p.opts.MinConfidence)
	if err != nil {
		failed.Add(1)
		metrics.PipelineRegionErrorsTotal.Inc()
		p.logger.Warn("region recognition failed",
			zap.Int("region", index),
			zap.Any("roi", roi),
			zap.Error(err),
		)
		return nil
	}
	return words
}
