package textmatch

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/metrics"
	"github.com/ironsheep/text-spotter/internal/pipeline"
)

// DefaultMaxAssignments is the phrase search ceiling used when none is set.
const DefaultMaxAssignments = 100000

// ErrSearchLimit is returned by phrase queries that hit the assignment
// ceiling under the Reject policy.
var ErrSearchLimit = errors.New("phrase search exceeded assignment limit")

// LimitPolicy decides what a phrase query does when it hits the ceiling.
type LimitPolicy string

const (
	// BestEffort returns the best complete assignment found so far, or
	// NotFound if none was completed, and marks the match Truncated.
	BestEffort LimitPolicy = "best_effort"

	// Reject fails the query with ErrSearchLimit.
	Reject LimitPolicy = "reject"
)

// ParseLimitPolicy accepts "best_effort" or "reject"; empty means best_effort.
func ParseLimitPolicy(s string) (LimitPolicy, error) {
	switch LimitPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BestEffort:
		return BestEffort, nil
	case Reject:
		return Reject, nil
	}
	return "", fmt.Errorf("unknown limit policy %q (want best_effort or reject)", s)
}

// Options configure a Matcher.
type Options struct {
	// MaxAssignments caps the partial and complete placements a phrase
	// search may visit. Zero means DefaultMaxAssignments.
	MaxAssignments int

	OnLimit       LimitPolicy
	CaseSensitive bool
}

// Match is the outcome of a query.
type Match struct {
	// Point is the match location, or geometry.NotFound.
	Point geometry.Point `json:"point"`

	// Boxes are the chosen boxes, one per token.
	Boxes []geometry.Box `json:"boxes,omitempty"`

	// Score is the edit distance for a word query and the pairwise center
	// distance sum for a phrase query.
	Score float64 `json:"score"`

	// Explored counts visited placements in a phrase search.
	Explored int `json:"explored"`

	// Truncated is set when the search stopped at the ceiling.
	Truncated bool `json:"truncated"`
}

// Found reports whether the query matched.
func (m Match) Found() bool {
	return m.Point.Found()
}

func notFound() Match {
	return Match{Point: geometry.NotFound}
}

// Matcher answers word and phrase queries. It is immutable and safe for
// concurrent use.
type Matcher struct {
	opts   Options
	logger *zap.Logger
}

// NewMatcher returns a Matcher for opts.
func NewMatcher(opts Options, logger *zap.Logger) *Matcher {
	if opts.MaxAssignments <= 0 {
		opts.MaxAssignments = DefaultMaxAssignments
	}
	if opts.OnLimit == "" {
		opts.OnLimit = BestEffort
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{opts: opts, logger: logger}
}

// Find splits phrase on whitespace and dispatches: one token runs Word,
// several run Phrase. A blank phrase matches nothing.
func (m *Matcher) Find(results []pipeline.Result, phrase string) (Match, error) {
	tokens := strings.Fields(phrase)
	switch len(tokens) {
	case 0:
		return notFound(), nil
	case 1:
		return m.Word(results, tokens[0]), nil
	default:
		return m.Phrase(results, tokens)
	}
}

// Word returns the center of the result closest to target among those
// fuzzy-equal to it. Ties keep the earliest result.
func (m *Matcher) Word(results []pipeline.Result, target string) Match {
	nt := normalize(target, m.opts.CaseSensitive)

	best := notFound()
	bestDist := math.MaxInt
	for _, r := range results {
		nr := normalize(r.Text, m.opts.CaseSensitive)
		if !matchNormalized(nr, nt) {
			continue
		}
		if d := Distance(nr, nt); d < bestDist {
			bestDist = d
			best = Match{
				Point: r.Box.Center(),
				Boxes: []geometry.Box{r.Box},
				Score: float64(d),
			}
		}
	}

	metrics.MatchQueriesTotal.WithLabelValues("word", resultLabel(best)).Inc()
	return best
}

// group is every box sharing one exact text.
type group struct {
	text  string
	boxes []geometry.Box
}

// groupByText groups results by exact text in order of first appearance.
func groupByText(results []pipeline.Result) []group {
	index := make(map[string]int)
	var groups []group
	for _, r := range results {
		i, ok := index[r.Text]
		if !ok {
			i = len(groups)
			index[r.Text] = i
			groups = append(groups, group{text: r.Text})
		}
		groups[i].boxes = append(groups[i].boxes, r.Box)
	}
	return groups
}

type candidate struct {
	box    geometry.Box
	center geometry.Point
}

// Phrase finds the assignment of one box per token with the smallest sum of
// pairwise center distances and returns its centroid.
//
// The search enumerates assignments depth first with an explicit index stack
// and abandons any partial assignment whose score already reaches the best
// complete score, which leaves the result identical to exhaustive search.
func (m *Matcher) Phrase(results []pipeline.Result, tokens []string) (Match, error) {
	if len(tokens) == 0 {
		return notFound(), nil
	}

	groups := groupByText(results)
	normGroups := make([]string, len(groups))
	for i, g := range groups {
		normGroups[i] = normalize(g.text, m.opts.CaseSensitive)
	}

	cands := make([][]candidate, len(tokens))
	for i, tok := range tokens {
		nt := normalize(tok, m.opts.CaseSensitive)
		for gi, g := range groups {
			if !matchNormalized(normGroups[gi], nt) {
				continue
			}
			for _, b := range g.boxes {
				cands[i] = append(cands[i], candidate{box: b, center: b.Center()})
			}
		}
		if len(cands[i]) == 0 {
			metrics.MatchQueriesTotal.WithLabelValues("phrase", "not_found").Inc()
			return notFound(), nil
		}
	}

	s := search(cands, m.opts.MaxAssignments)
	metrics.MatchAssignmentsExplored.Observe(float64(s.explored))

	if s.truncated {
		m.logger.Warn("phrase search hit assignment limit",
			zap.Strings("tokens", tokens),
			zap.Int("limit", m.opts.MaxAssignments),
			zap.String("policy", string(m.opts.OnLimit)),
		)
		if m.opts.OnLimit == Reject {
			metrics.MatchQueriesTotal.WithLabelValues("phrase", "rejected").Inc()
			return Match{Point: geometry.NotFound, Explored: s.explored, Truncated: true},
				fmt.Errorf("%w: %d tokens, limit %d", ErrSearchLimit, len(tokens), m.opts.MaxAssignments)
		}
	}

	match := Match{Point: geometry.NotFound, Explored: s.explored, Truncated: s.truncated}
	if s.best != nil {
		boxes := make([]geometry.Box, len(s.best))
		for i, ci := range s.best {
			boxes[i] = cands[i][ci].box
		}
		match.Point = geometry.Centroid(boxes)
		match.Boxes = boxes
		match.Score = s.score
	}

	metrics.MatchQueriesTotal.WithLabelValues("phrase", resultLabel(match)).Inc()
	return match, nil
}

type searchResult struct {
	best      []int
	score     float64
	explored  int
	truncated bool
}

// search runs the branch-and-bound enumeration. Every placement of a box at
// any depth counts toward limit.
func search(cands [][]candidate, limit int) searchResult {
	k := len(cands)
	idx := make([]int, k)
	partial := make([]float64, k+1)
	chosen := make([]geometry.Point, k)

	res := searchResult{score: math.Inf(1)}
	depth := 0
	for depth >= 0 {
		if idx[depth] == len(cands[depth]) {
			idx[depth] = 0
			depth--
			if depth >= 0 {
				idx[depth]++
			}
			continue
		}
		if res.explored >= limit {
			res.truncated = true
			break
		}
		res.explored++

		c := cands[depth][idx[depth]].center
		score := partial[depth]
		for j := 0; j < depth; j++ {
			score += geometry.Distance(chosen[j], c)
		}
		if score >= res.score {
			idx[depth]++
			continue
		}

		chosen[depth] = c
		if depth == k-1 {
			res.score = score
			res.best = append(res.best[:0], idx...)
			idx[depth]++
			continue
		}
		partial[depth+1] = score
		depth++
	}

	if res.best == nil {
		res.score = 0
	}
	return res
}

func resultLabel(m Match) string {
	switch {
	case m.Truncated:
		return "truncated"
	case m.Found():
		return "found"
	default:
		return "not_found"
	}
}

var defaultMatcher = NewMatcher(Options{}, nil)

// MatchWord returns the center of the best fuzzy match for target, or
// geometry.NotFound. Matching is case-insensitive.
func MatchWord(results []pipeline.Result, target string) geometry.Point {
	return defaultMatcher.Word(results, target).Point
}

// MatchWordGroups returns the centroid of the most compact assignment of
// tokens, or geometry.NotFound. It uses the default ceiling with the
// BestEffort policy.
func MatchWordGroups(results []pipeline.Result, tokens []string) geometry.Point {
	m, err := defaultMatcher.Phrase(results, tokens)
	if err != nil {
		return geometry.NotFound
	}
	return m.Point
}
