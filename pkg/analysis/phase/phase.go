package phase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"
)

// Params controls the window scan.
type Params struct {
	WindowDays int `json:"window_days" yaml:"window_days" validate:"gte=1"`
	StepDays   int `json:"step_days" yaml:"step_days" validate:"gte=1"`
	// SimilarityThreshold 0 is valid and disables transitions.
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	MinEventsPerWindow  int     `json:"min_events_per_window" yaml:"min_events_per_window" validate:"gte=1"`
	TopKeywords         int     `json:"top_keywords" yaml:"top_keywords" validate:"gte=1"`
}

// DefaultParams returns 30 day windows stepping by 15 days.
func DefaultParams() Params {
	return Params{WindowDays: 30, StepDays: 15, SimilarityThreshold: 0.4, MinEventsPerWindow: 3, TopKeywords: 10}
}

// Transition is a shift of the dominant topic between two windows.
type Transition struct {
	ID               int       `json:"transition_id"`
	Date             time.Time `json:"date"`
	PreviousPhase    string    `json:"previous_phase"`
	NewPhase         string    `json:"new_phase"`
	PreviousKeywords []string  `json:"previous_keywords"`
	NewKeywords      []string  `json:"new_keywords"`
	Similarity       float64   `json:"similarity_score"`
	Confidence       float64   `json:"confidence"`
	EventCount       int       `json:"event_count"`
	Description      string    `json:"description"`
}

type window struct {
	start    time.Time
	keywords []string
	events   int
}

// Detector finds phase transitions from subject keywords.
type Detector struct {
	params Params
}

// NewDetector creates a detector. The zero Params selects DefaultParams.
// Otherwise values are used as given, except counts below 1, which cannot
// run: those fall back to the default with a warning.
func NewDetector(params Params) *Detector {
	def := DefaultParams()
	if params == (Params{}) {
		return &Detector{params: def}
	}
	atLeastOne := func(name string, v *int, d int) {
		if *v < 1 {
			logger.Warn("[Phase] Invalid parameter, using default", "param", name, "value", *v, "default", d)
			*v = d
		}
	}
	atLeastOne("window_days", &params.WindowDays, def.WindowDays)
	atLeastOne("step_days", &params.StepDays, def.StepDays)
	atLeastOne("min_events_per_window", &params.MinEventsPerWindow, def.MinEventsPerWindow)
	atLeastOne("top_keywords", &params.TopKeywords, def.TopKeywords)
	return &Detector{params: params}
}

// Detect slides overlapping windows over the timeline and emits a
// transition whenever the keyword sets of consecutive windows have a
// Jaccard similarity below the threshold.
func (d *Detector) Detect(tl *timeline.Timeline) []Transition {
	if tl == nil || tl.Len() < d.params.MinEventsPerWindow {
		logger.Warn("[Phase] Insufficient data for phase detection")
		return nil
	}

	windows := d.windows(tl.Entries())
	if len(windows) < 2 {
		logger.Warn("[Phase] Need at least 2 windows for transition detection", "windows", len(windows))
		return nil
	}
	logger.Debug("[Phase] Extracted window topics", "windows", len(windows))

	var out []Transition
	for i := 1; i < len(windows); i++ {
		prev, curr := windows[i-1], windows[i]
		sim := Jaccard(prev.keywords, curr.keywords)
		if sim >= d.params.SimilarityThreshold {
			continue
		}
		prevPhase, newPhase := InferPhase(prev.keywords), InferPhase(curr.keywords)
		confidence := 0.5*(1-sim) +
			0.3*min(1, float64(curr.events)/10) +
			0.2*min(1, float64(len(curr.keywords))/float64(d.params.TopKeywords))
		out = append(out, Transition{
			Date:             curr.start,
			PreviousPhase:    prevPhase,
			NewPhase:         newPhase,
			PreviousKeywords: head(prev.keywords, 5),
			NewKeywords:      head(curr.keywords, 5),
			Similarity:       common.Round(sim, 3),
			Confidence:       common.Round(confidence, 3),
			EventCount:       curr.events,
			Description:      fmt.Sprintf("Phase transition from %s to %s (similarity: %.2f%%)", prevPhase, newPhase, sim*100),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := range out {
		out[i].ID = i
	}
	logger.Info("[Phase] Detected phase transitions", "count", len(out))
	return out
}

// windows cuts [start, start+WindowDays) slices every StepDays while start
// is before the last event. Sparse windows and windows without usable
// subjects are skipped.
func (d *Detector) windows(entries []common.TimelineEntry) []window {
	size := time.Duration(d.params.WindowDays) * 24 * time.Hour
	step := time.Duration(d.params.StepDays) * 24 * time.Hour
	last := entries[len(entries)-1].Date

	var out []window
	lo := 0
	for cur := entries[0].Date; cur.Before(last); cur = cur.Add(step) {
		for lo < len(entries) && entries[lo].Date.Before(cur) {
			lo++
		}
		hi := lo
		for hi < len(entries) && entries[hi].Date.Before(cur.Add(size)) {
			hi++
		}
		events := entries[lo:hi]
		if len(events) < d.params.MinEventsPerWindow {
			continue
		}
		keywords, err := d.keywords(events)
		if err != nil {
			logger.Debug("[Phase] Could not extract topics from window", "start", cur, "err", err)
			continue
		}
		out = append(out, window{start: events[0].Date, keywords: keywords, events: len(events)})
	}
	return out
}

// keywords returns the top TF-IDF terms followed by the most frequent
// tokens, deduplicated and capped at TopKeywords.
func (d *Detector) keywords(events []common.TimelineEntry) ([]string, error) {
	var docs []string
	for _, e := range events {
		if cleaned := CleanText(e.Subject); cleaned != "" {
			docs = append(docs, cleaned)
		}
	}
	if len(docs) == 0 {
		return nil, ErrEmptyVocabulary
	}

	m, err := NewVectorizer().FitTransform(docs)
	if err != nil {
		return nil, err
	}

	keywords := make([]string, 0, d.params.TopKeywords)
	seen := make(map[string]struct{})
	add := func(k string) {
		if _, ok := seen[k]; ok || len(keywords) >= d.params.TopKeywords {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}
	for _, k := range m.Top(d.params.TopKeywords) {
		add(k)
	}
	for _, k := range mostCommon(docs, d.params.TopKeywords) {
		add(k)
	}
	return keywords, nil
}

// mostCommon returns the n most frequent whitespace tokens. Ties keep first
// appearance order.
func mostCommon(docs []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, doc := range docs {
		for _, w := range strings.Fields(doc) {
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return head(order, n)
}

var (
	emailPattern   = regexp.MustCompile(`\S+@\S+`)
	urlPattern     = regexp.MustCompile(`http\S+|www\.\S+`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]`)
	subjectNoise   = toSet("re", "fw", "fwd", "meeting", "call", "update", "discussion")
)

// CleanText normalizes a subject line for topic extraction.
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = emailPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = nonWordPattern.ReplaceAllString(text, " ")

	var words []string
	for _, w := range strings.Fields(text) {
		if _, noise := subjectNoise[w]; noise || len(w) <= 2 {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the distinct elements. Two empty
// sets are identical.
func Jaccard(a, b []string) float64 {
	setA, setB := toSet(a...), toSet(b...)
	union := len(setA)
	inter := 0
	for k := range setB {
		if _, ok := setA[k]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// categories are tried in order; the first whose marker occurs anywhere in
// the joined keywords names the phase.
var categories = []struct {
	name    string
	markers []string
}{
	{"Planning", []string{"workshop", "kickoff", "briefing", "discovery", "planning"}},
	{"Design", []string{"design", "brand", "identity", "visual", "creative"}},
	{"Development", []string{"architecture", "technical", "implementation", "development"}},
	{"Delivery", []string{"presentation", "review", "demo", "delivery"}},
	{"Scoping", []string{"scope", "requirements", "specification", "documentation"}},
	{"Launch", []string{"launch", "release", "deployment", "live"}},
	{"Maintenance", []string{"maintenance", "support", "update", "iteration"}},
}

// InferPhase names a phase from its keywords. Without a category match the
// first keyword is used, title-cased.
func InferPhase(keywords []string) string {
	joined := strings.ToLower(strings.Join(keywords, " "))
	for _, c := range categories {
		for _, m := range c.markers {
			if strings.Contains(joined, m) {
				return c.name
			}
		}
	}
	if len(keywords) > 0 {
		return common.TitleCase(keywords[0])
	}
	return "Unknown"
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Summary renders transitions as plain text.
func Summary(transitions []Transition) string {
	if len(transitions) == 0 {
		return "No phase transitions detected."
	}
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "\n%s\nPROJECT PHASE TRANSITIONS\n%s\n", rule, rule)
	for _, t := range transitions {
		fmt.Fprintf(&b, "\n[%s] %s -> %s\n", t.Date.Format(time.DateOnly), t.PreviousPhase, t.NewPhase)
		fmt.Fprintf(&b, "  Confidence: %.2f%%\n", t.Confidence*100)
		fmt.Fprintf(&b, "  Topic Shift: %.2f%% similarity\n", t.Similarity*100)
		fmt.Fprintf(&b, "  Previous Focus: %s\n", strings.Join(t.PreviousKeywords, ", "))
		fmt.Fprintf(&b, "  New Focus: %s\n", strings.Join(t.NewKeywords, ", "))
		fmt.Fprintf(&b, "  Events in New Phase: %d\n", t.EventCount)
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}
