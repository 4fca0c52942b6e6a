// Package transcript implements the consolidation core: validation of timed
// segments and weighted keywords, standardization of raw engine output into
// the canonical Transcript shape, and merging of multiple standardized
// transcripts describing the same source media.
package transcript

import "github.com/clipforge/api/internal/model"

// ValidateSegment reports whether s is a well-formed segment: non-negative
// index, start before end, non-empty text. Pure predicate, never panics.
func ValidateSegment(s model.Segment) bool {
	if s.Index < 0 {
		return false
	}
	if !(s.Start < s.End) || s.Start < 0 {
		return false
	}
	return s.Text != ""
}

// ValidateKeyword reports whether k is a well-formed keyword: non-empty word,
// positive frequency, importance in [0,1], no more timestamps than occurrences.
func ValidateKeyword(k model.Keyword) bool {
	if k.Word == "" {
		return false
	}
	if k.Frequency <= 0 {
		return false
	}
	if k.Importance < 0 || k.Importance > 1 {
		return false
	}
	return len(k.Timestamps) <= k.Frequency
}

// ValidateBasicStructure reports whether t is safe to hand downstream. A
// failed transcript only needs its success flag; a successful one must carry
// a non-negative duration and segments that each pass ValidateSegment.
func ValidateBasicStructure(t *model.Transcript) bool {
	if t == nil {
		return false
	}
	if !t.Success {
		return true
	}
	if t.Duration < 0 {
		return false
	}
	for _, s := range t.Segments {
		if !ValidateSegment(s) {
			return false
		}
	}
	return true
}
