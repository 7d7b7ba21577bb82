package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/imaging"
	"github.com/ironsheep/text-spotter/internal/pipeline"
	"github.com/ironsheep/text-spotter/internal/spotter"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "text_read", "text_match").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool finished", zap.String("tool", params.Name), zap.Duration("elapsed", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "text_read":
		return s.handleTextRead(ctx, args)
	case "text_match":
		return s.handleTextMatch(ctx, args)
	case "text_ocr":
		return s.handleTextOCR(ctx, args)
	case "text_detect":
		return s.handleTextDetect(args)
	case "text_annotate":
		return s.handleTextAnnotate(ctx, args)
	case "text_crop":
		return s.handleTextCrop(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_evict":
		return s.handleImageEvict(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errors.New("missing arguments")
	}
	return json.Unmarshal(args, v)
}

// === Reading Handlers ===

type textReadArgs struct {
	Path           string `json:"path"`
	IncludeRegions bool   `json:"include_regions"`
}

type textReadResult struct {
	Results    []pipeline.Result     `json:"results"`
	Count      int                   `json:"count"`
	Candidates []detection.Candidate `json:"candidates,omitempty"`
	ROIs       []geometry.Box        `json:"rois,omitempty"`
	ElapsedMS  int64                 `json:"elapsed_ms"`
	Summary    string                `json:"summary"`
}

func (s *Server) handleTextRead(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a textReadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	r, err := s.spotter.ReadFile(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	out := textReadResult{
		Results:   r.Results,
		Count:     len(r.Results),
		ElapsedMS: r.Elapsed.Milliseconds(),
		Summary:   fmt.Sprintf("Detect and read %d texts in %.3f seconds", len(r.Results), r.Elapsed.Seconds()),
	}
	if out.Results == nil {
		out.Results = []pipeline.Result{}
	}
	if a.IncludeRegions {
		out.Candidates = r.Candidates
		out.ROIs = r.ROIs
	}
	return out, nil
}

type textMatchArgs struct {
	Path   string `json:"path"`
	Phrase string `json:"phrase"`
}

type textMatchResult struct {
	Found     bool           `json:"found"`
	Point     geometry.Point `json:"point"`
	Boxes     []geometry.Box `json:"boxes,omitempty"`
	Score     float64        `json:"score"`
	Explored  int            `json:"explored,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Words     int            `json:"words_read"`
	ElapsedMS int64          `json:"elapsed_ms"`
}

func (s *Server) handleTextMatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a textMatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Phrase) == "" {
		return nil, errors.New("phrase is required")
	}
	img, err := s.spotter.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}
	rep, err := s.spotter.Match(ctx, img, a.Phrase)
	if err != nil {
		return nil, err
	}
	return textMatchResult{
		Found:     rep.Match.Found(),
		Point:     rep.Match.Point,
		Boxes:     rep.Match.Boxes,
		Score:     rep.Match.Score,
		Explored:  rep.Match.Explored,
		Truncated: rep.Match.Truncated,
		Words:     len(rep.Reading.Results),
		ElapsedMS: rep.Reading.Elapsed.Milliseconds(),
	}, nil
}

type textOCRResult struct {
	Text  string `json:"text"`
	Lines int    `json:"lines"`
}

func (s *Server) handleTextOCR(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	text, err := s.spotter.TextFile(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	lines := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	return textOCRResult{Text: text, Lines: lines}, nil
}

type textDetectResult struct {
	Candidates []detection.Candidate `json:"candidates"`
	Count      int                   `json:"count"`
}

func (s *Server) handleTextDetect(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.spotter.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}
	cs, err := s.spotter.Detect(img)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		cs = []detection.Candidate{}
	}
	return textDetectResult{Candidates: cs, Count: len(cs)}, nil
}

type textAnnotateArgs struct {
	Path   string `json:"path"`
	Phrase string `json:"phrase"`
}

type textAnnotateResult struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	ImageBase64 string          `json:"image_base64"`
	MimeType    string          `json:"mime_type"`
	Point       *geometry.Point `json:"point,omitempty"`
	Words       int             `json:"words_read"`
}

func (s *Server) handleTextAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a textAnnotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.spotter.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}

	var (
		reading *spotter.Reading
		point   = geometry.NotFound
		marked  *geometry.Point
	)
	if strings.TrimSpace(a.Phrase) != "" {
		rep, err := s.spotter.Match(ctx, img, a.Phrase)
		if err != nil {
			return nil, err
		}
		reading = rep.Reading
		point = rep.Match.Point
		marked = &point
	} else {
		reading, err = s.spotter.Read(ctx, img)
		if err != nil {
			return nil, err
		}
	}

	out := s.spotter.Annotate(img, reading, point)
	encoded, err := imaging.EncodePNGBase64(out)
	if err != nil {
		return nil, err
	}
	b := out.Bounds()
	return textAnnotateResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Point:       marked,
		Words:       len(reading.Results),
	}, nil
}

type textCropArgs struct {
	Path   string  `json:"path"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleTextCrop(args json.RawMessage) (interface{}, error) {
	var a textCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.spotter.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropROI(img, geometry.Box{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}, a.Scale)
}

// === Image Handlers ===

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.spotter.Dimensions(a.Path)
}

type imageEvictArgs struct {
	Path string `json:"path"`
	All  bool   `json:"all"`
}

func (s *Server) handleImageEvict(args json.RawMessage) (interface{}, error) {
	var a imageEvictArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.All {
		s.spotter.EvictAll()
		return map[string]interface{}{"evicted": "all", "cached": 0}, nil
	}
	remaining := s.spotter.Evict(a.Path)
	return map[string]interface{}{"evicted": a.Path, "cached": remaining}, nil
}
