package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/clipforge/api/internal/model"
)

// ErrInvalidRawResult is returned when a raw engine result is not even
// coercible into the canonical shape.
var ErrInvalidRawResult = errors.New("raw result not coercible")

// DefaultImportance is assigned to keywords that carry no relevance signal.
const DefaultImportance = 0.5

// Standardize converts an arbitrary raw engine result into a canonical
// Transcript. Optional fields are backfilled: segment indexes are assigned by
// arrival order, bare keyword strings become full keyword records, and missing
// importance defaults to a flat midpoint. The output always satisfies the
// Transcript invariants; a failed raw result yields a well-shaped transcript
// with Success=false and empty segments and keywords.
func Standardize(raw *model.RawResult, engine string) (*model.Transcript, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil result", ErrInvalidRawResult)
	}

	t := &model.Transcript{
		Success:  raw.Success,
		Engine:   engine,
		Duration: raw.Duration,
		Language: raw.Language,
		Segments: []model.Segment{},
		Keywords: []model.Keyword{},
		Metadata: raw.Metadata,
	}
	if t.Duration < 0 {
		t.Duration = 0
	}
	if !raw.Success {
		return t, nil
	}

	t.Segments = standardizeSegments(raw.Segments)
	if len(t.Segments) > 0 {
		t.Text = joinSegments(t.Segments)
	} else {
		t.Text = raw.Text
	}

	keywords, err := standardizeKeywords(raw.Keywords, t.Segments)
	if err != nil {
		return nil, err
	}
	t.Keywords = keywords

	return t, nil
}

func standardizeSegments(raw []model.RawSegment) []model.Segment {
	segments := make([]model.Segment, 0, len(raw))
	for _, rs := range raw {
		s := model.Segment{
			Index:      len(segments),
			Start:      rs.Start,
			End:        rs.End,
			Text:       strings.TrimSpace(rs.Text),
			Confidence: rs.Confidence,
		}
		// Unrepairable segments are dropped rather than surfaced downstream.
		if !ValidateSegment(s) {
			continue
		}
		segments = append(segments, s)
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	for i := range segments {
		segments[i].Index = i
	}
	return segments
}

func standardizeKeywords(raw []json.RawMessage, segments []model.Segment) ([]model.Keyword, error) {
	keywords := make([]model.Keyword, 0, len(raw))
	for _, entry := range raw {
		k, err := coerceKeyword(entry, segments)
		if err != nil {
			return nil, err
		}
		if !ValidateKeyword(k) {
			continue
		}
		keywords = append(keywords, k)
	}
	SortKeywords(keywords)
	return keywords, nil
}

// coerceKeyword normalizes the string|object union of a raw keyword entry.
func coerceKeyword(entry json.RawMessage, segments []model.Segment) (model.Keyword, error) {
	var word string
	if err := json.Unmarshal(entry, &word); err == nil {
		k := model.Keyword{Word: strings.ToLower(strings.TrimSpace(word))}
		k.Frequency, k.Timestamps = countOccurrences(k.Word, segments)
		k.Importance = DefaultImportance
		return k, nil
	}

	var rk model.RawKeyword
	if err := json.Unmarshal(entry, &rk); err != nil {
		return model.Keyword{}, fmt.Errorf("%w: keyword entry is neither string nor object", ErrInvalidRawResult)
	}

	k := model.Keyword{
		Word:       strings.ToLower(strings.TrimSpace(rk.Word)),
		Importance: DefaultImportance,
	}
	if rk.Timestamps != nil {
		k.Timestamps = dedupeTimestamps(rk.Timestamps)
	} else {
		_, k.Timestamps = countOccurrences(k.Word, segments)
	}
	switch {
	case rk.Frequency != nil && *rk.Frequency > 0:
		k.Frequency = *rk.Frequency
	case len(k.Timestamps) > 0:
		k.Frequency = len(k.Timestamps)
	default:
		k.Frequency = 1
	}
	if rk.Importance != nil {
		k.Importance = clamp01(*rk.Importance)
	}
	if len(k.Timestamps) > k.Frequency {
		k.Frequency = len(k.Timestamps)
	}
	return k, nil
}

// countOccurrences counts how often word appears across segment texts and
// collects the start of each distinct containing segment. A word never seen
// in any segment still counts once, with no timestamp.
func countOccurrences(word string, segments []model.Segment) (int, []float64) {
	if word == "" {
		return 0, nil
	}
	freq := 0
	timestamps := []float64{}
	for _, s := range segments {
		n := strings.Count(strings.ToLower(s.Text), word)
		if n == 0 {
			continue
		}
		freq += n
		timestamps = append(timestamps, s.Start)
	}
	if freq == 0 {
		return 1, []float64{}
	}
	return freq, timestamps
}

func dedupeTimestamps(ts []float64) []float64 {
	if ts == nil {
		return nil
	}
	seen := make(map[float64]struct{}, len(ts))
	out := make([]float64, 0, len(ts))
	for _, t := range ts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// SortKeywords orders keywords by descending importance, then descending
// frequency, then word for determinism.
func SortKeywords(keywords []model.Keyword) {
	sort.SliceStable(keywords, func(i, j int) bool {
		if keywords[i].Importance != keywords[j].Importance {
			return keywords[i].Importance > keywords[j].Importance
		}
		if keywords[i].Frequency != keywords[j].Frequency {
			return keywords[i].Frequency > keywords[j].Frequency
		}
		return keywords[i].Word < keywords[j].Word
	})
}

func joinSegments(segments []model.Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
