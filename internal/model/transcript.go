package model

import "encoding/json"

// EngineMerged is the engine identifier carried by consolidated transcripts.
const EngineMerged = "merged"

// Segment is a timed span of transcript text. Within one transcript segments
// are sorted ascending by Start and Index matches array position.
type Segment struct {
	Index      int      `json:"index"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Keyword is a weighted term occurring across a transcript. Timestamps holds
// the start of each distinct segment the word occurs in, deduplicated, so
// len(Timestamps) <= Frequency.
type Keyword struct {
	Word       string    `json:"word"`
	Frequency  int       `json:"frequency"`
	Timestamps []float64 `json:"timestamps"`
	Importance float64   `json:"importance"`
}

// Transcript is the canonical unit the rest of the system consumes. It is
// never mutated in place; every transform produces a new value.
type Transcript struct {
	Success  bool                   `json:"success"`
	Engine   string                 `json:"engine"`
	Duration float64                `json:"duration"`
	Language string                 `json:"language,omitempty"`
	Text     string                 `json:"text"`
	Segments []Segment              `json:"segments"`
	Keywords []Keyword              `json:"keywords"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RawSegment is a segment as produced by a transcription engine. Index and
// Confidence are optional; the standardizer backfills them.
type RawSegment struct {
	Index      *int     `json:"index,omitempty"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RawResult is the loosely shaped output of a transcription engine. Keywords
// entries may be bare strings or full keyword objects; the standardizer
// normalizes the union explicitly.
type RawResult struct {
	Success  bool                   `json:"success"`
	Duration float64                `json:"duration,omitempty"`
	Language string                 `json:"language,omitempty"`
	Text     string                 `json:"text,omitempty"`
	Segments []RawSegment           `json:"segments,omitempty"`
	Keywords []json.RawMessage      `json:"keywords,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RawKeyword is the object form of a raw keyword entry.
type RawKeyword struct {
	Word       string    `json:"word"`
	Frequency  *int      `json:"frequency,omitempty"`
	Timestamps []float64 `json:"timestamps,omitempty"`
	Importance *float64  `json:"importance,omitempty"`
}

// SavedTranscript is the persistence handle returned by the transcript service.
type SavedTranscript struct {
	ID         string      `json:"id"`
	Transcript *Transcript `json:"transcript"`
}

// TranscriptIngestRequest carries one or more raw engine results describing
// the same source media.
type TranscriptIngestRequest struct {
	Results []EngineResult `json:"results" validate:"required,min=1,dive"`
	Analyze bool           `json:"analyze,omitempty"`
}

// EngineResult pairs a raw result with the engine that produced it.
type EngineResult struct {
	Engine string    `json:"engine" validate:"required"`
	Result RawResult `json:"result"`
}

// TranscriptIngestResponse is returned by the ingestion endpoint.
type TranscriptIngestResponse struct {
	ID         string      `json:"id"`
	Transcript *Transcript `json:"transcript"`
	Analysis   *Analysis   `json:"analysis,omitempty"`
}
