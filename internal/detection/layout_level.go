package detection

import (
	"fmt"
	"strings"
)

// Level is the granularity of boxes reported by LayoutDetector.
type Level int

const (
	LevelBlock Level = iota
	LevelParagraph
	LevelLine
	LevelWord
)

// ParseLevel accepts "block", "paragraph", "line", or "word". Empty means line.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return LevelBlock, nil
	case "paragraph", "para":
		return LevelParagraph, nil
	case "", "line", "textline":
		return LevelLine, nil
	case "word":
		return LevelWord, nil
	}
	return 0, fmt.Errorf("unknown layout level %q (want block, paragraph, line, or word)", s)
}

func (l Level) String() string {
	switch l {
	case LevelBlock:
		return "block"
	case LevelParagraph:
		return "paragraph"
	case LevelWord:
		return "word"
	default:
		return "line"
	}
}

// LayoutConfig configures the Tesseract layout detector.
type LayoutConfig struct {
	Language       string
	TessdataPrefix string
	Level          Level
	MinConfidence  float64
	NMSThreshold   float64
}
