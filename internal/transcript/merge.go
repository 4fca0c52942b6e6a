package transcript

import (
	"errors"
	"sort"

	"github.com/clipforge/api/internal/model"
)

// ErrEmptyMergeInput is returned when Merge is called with zero transcripts.
var ErrEmptyMergeInput = errors.New("merge requires at least one transcript")

// DefaultOverlapThreshold is the fraction of the shorter segment's duration
// two segments must share before they are treated as competing observations
// of the same span.
const DefaultOverlapThreshold = 0.5

// unknownConfidence stands in for absent confidence during comparisons only;
// it is never written back to a segment.
const unknownConfidence = 0.5

// Merge consolidates one or more standardized transcripts of the same source
// media into a single transcript using DefaultOverlapThreshold.
func Merge(inputs []*model.Transcript) (*model.Transcript, error) {
	return MergeWithThreshold(inputs, DefaultOverlapThreshold)
}

// MergeWithThreshold consolidates transcripts with an explicit overlap
// threshold. Overlapping segments keep the higher-confidence observation,
// keywords union by word with summed frequencies, and scalar fields aggregate
// as described on the returned transcript. Merging a single input is the
// identity transform up to re-indexing.
func MergeWithThreshold(inputs []*model.Transcript, threshold float64) (*model.Transcript, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyMergeInput
	}
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}

	merged := &model.Transcript{
		Engine:   model.EngineMerged,
		Segments: []model.Segment{},
		Keywords: []model.Keyword{},
		Metadata: mergeMetadata(inputs),
	}

	successful := make([]*model.Transcript, 0, len(inputs))
	for _, in := range inputs {
		if in == nil {
			continue
		}
		if in.Duration > merged.Duration {
			merged.Duration = in.Duration
		}
		if in.Success {
			successful = append(successful, in)
			merged.Success = true
		}
	}
	if !merged.Success {
		return merged, nil
	}

	merged.Segments = consolidateSegments(successful, threshold)
	merged.Text = joinSegments(merged.Segments)
	merged.Keywords = consolidateKeywords(successful)
	merged.Language = pickLanguage(successful)

	return merged, nil
}

// pooledSegment tracks which input a segment came from so confidence ties
// resolve toward the earlier-listed input.
type pooledSegment struct {
	model.Segment
	source int
}

func consolidateSegments(inputs []*model.Transcript, threshold float64) []model.Segment {
	var pool []pooledSegment
	for src, in := range inputs {
		for _, s := range in.Segments {
			pool = append(pool, pooledSegment{Segment: s, source: src})
		}
	}

	// Start ascending; ties break by descending confidence with unknown
	// sorting after known, then by input order (stable).
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Start != pool[j].Start {
			return pool[i].Start < pool[j].Start
		}
		ci, ki := effectiveConfidence(pool[i].Segment)
		cj, kj := effectiveConfidence(pool[j].Segment)
		if ki != kj {
			return ki
		}
		return ci > cj
	})

	var survivors []pooledSegment
	for _, cand := range pool {
		for {
			if len(survivors) == 0 {
				survivors = append(survivors, cand)
				break
			}
			last := survivors[len(survivors)-1]
			if !competing(last.Segment, cand.Segment, threshold) {
				survivors = append(survivors, cand)
				break
			}
			if beats(cand, last) {
				// Candidate wins the span; the displaced survivor may have
				// shielded an earlier one, so re-check.
				survivors = survivors[:len(survivors)-1]
				continue
			}
			break
		}
	}

	out := make([]model.Segment, len(survivors))
	for i, s := range survivors {
		seg := s.Segment
		seg.Index = i
		out[i] = seg
	}
	return out
}

// competing reports whether two segments overlap by more than threshold of
// the shorter segment's duration.
func competing(a, b model.Segment, threshold float64) bool {
	overlap := minf(a.End, b.End) - maxf(a.Start, b.Start)
	if overlap <= 0 {
		return false
	}
	shorter := minf(a.End-a.Start, b.End-b.Start)
	return overlap > threshold*shorter
}

func beats(cand, incumbent pooledSegment) bool {
	cc, _ := effectiveConfidence(cand.Segment)
	ic, _ := effectiveConfidence(incumbent.Segment)
	if cc != ic {
		return cc > ic
	}
	return cand.source < incumbent.source
}

// effectiveConfidence returns the confidence used for comparisons and whether
// it was actually known.
func effectiveConfidence(s model.Segment) (float64, bool) {
	if s.Confidence == nil {
		return unknownConfidence, false
	}
	return *s.Confidence, true
}

func consolidateKeywords(inputs []*model.Transcript) []model.Keyword {
	type acc struct {
		keyword        model.Keyword
		weightedImport float64
		timestamps     map[float64]struct{}
	}

	byWord := make(map[string]*acc)
	var order []string
	for _, in := range inputs {
		for _, k := range in.Keywords {
			a, ok := byWord[k.Word]
			if !ok {
				a = &acc{
					keyword:    model.Keyword{Word: k.Word},
					timestamps: make(map[float64]struct{}),
				}
				byWord[k.Word] = a
				order = append(order, k.Word)
			}
			a.keyword.Frequency += k.Frequency
			a.weightedImport += k.Importance * float64(k.Frequency)
			for _, ts := range k.Timestamps {
				a.timestamps[ts] = struct{}{}
			}
		}
	}

	out := make([]model.Keyword, 0, len(byWord))
	for _, word := range order {
		a := byWord[word]
		k := a.keyword
		if k.Frequency > 0 {
			k.Importance = a.weightedImport / float64(k.Frequency)
		}
		k.Timestamps = make([]float64, 0, len(a.timestamps))
		for ts := range a.timestamps {
			k.Timestamps = append(k.Timestamps, ts)
		}
		sort.Float64s(k.Timestamps)
		out = append(out, k)
	}
	SortKeywords(out)
	return out
}

// pickLanguage returns the first non-empty language, preferring inputs with
// more segments.
func pickLanguage(inputs []*model.Transcript) string {
	ranked := make([]*model.Transcript, len(inputs))
	copy(ranked, inputs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Segments) > len(ranked[j].Segments)
	})
	for _, in := range ranked {
		if in.Language != "" {
			return in.Language
		}
	}
	return ""
}

func mergeMetadata(inputs []*model.Transcript) map[string]interface{} {
	engines := make([]string, 0, len(inputs))
	var processingTime float64
	for _, in := range inputs {
		if in == nil {
			continue
		}
		engines = append(engines, in.Engine)
		if in.Metadata == nil {
			continue
		}
		switch v := in.Metadata["processingTime"].(type) {
		case float64:
			processingTime += v
		case int:
			processingTime += float64(v)
		}
	}
	return map[string]interface{}{
		"processingTime": processingTime,
		"sourceEngines":  engines,
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
