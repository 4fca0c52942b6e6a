package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clipforge/api/internal/client"
	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/store"
	"github.com/clipforge/api/internal/transcript"
)

// maxSummaryLength bounds derived summaries.
const maxSummaryLength = 280

// maxKeyPoints bounds how many top keywords become key points.
const maxKeyPoints = 5

// TranscriptService orchestrates standardize -> merge -> persist -> analyze
// for a single ingestion. Transcripts are read-only once saved; saving an
// equal transcript twice is a no-op because ids are content-addressed.
type TranscriptService struct {
	store            store.TranscriptStore
	contentGen       client.ContentGenerator
	overlapThreshold float64
	logger           *zap.Logger
}

func NewTranscriptService(ts store.TranscriptStore, gen client.ContentGenerator, overlapThreshold float64, logger *zap.Logger) *TranscriptService {
	if overlapThreshold <= 0 {
		overlapThreshold = transcript.DefaultOverlapThreshold
	}
	return &TranscriptService{
		store:            ts,
		contentGen:       gen,
		overlapThreshold: overlapThreshold,
		logger:           logger,
	}
}

// Ingest standardizes every raw engine result, merges siblings when more
// than one engine reported, saves the consolidated transcript and optionally
// derives analysis.
func (s *TranscriptService) Ingest(ctx context.Context, req *model.TranscriptIngestRequest) (*model.TranscriptIngestResponse, error) {
	standardized := make([]*model.Transcript, 0, len(req.Results))
	for _, er := range req.Results {
		raw := er.Result
		t, err := transcript.Standardize(&raw, er.Engine)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", er.Engine, err)
		}
		standardized = append(standardized, t)
	}

	consolidated := standardized[0]
	if len(standardized) > 1 {
		merged, err := transcript.MergeWithThreshold(standardized, s.overlapThreshold)
		if err != nil {
			return nil, err
		}
		consolidated = merged
	}

	saved, err := s.SaveTranscript(ctx, consolidated)
	if err != nil {
		return nil, err
	}

	resp := &model.TranscriptIngestResponse{
		ID:         saved.ID,
		Transcript: saved.Transcript,
	}
	if req.Analyze {
		resp.Analysis = s.PerformAnalysis(ctx, saved)
	}
	return resp, nil
}

// SaveTranscript persists a transcript under a content-derived id, so saving
// the same transcript twice produces the same handle with no duplicate side
// effects.
func (s *TranscriptService) SaveTranscript(ctx context.Context, t *model.Transcript) (*model.SavedTranscript, error) {
	id, err := transcriptID(t)
	if err != nil {
		return nil, err
	}
	saved := &model.SavedTranscript{ID: id, Transcript: t}
	if err := s.store.Save(ctx, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetTranscript retrieves a saved transcript by id.
func (s *TranscriptService) GetTranscript(ctx context.Context, id string) (*model.SavedTranscript, error) {
	saved, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// transcriptID derives a stable id from the transcript content. JSON
// marshaling orders map keys, so equal transcripts hash identically.
func transcriptID(t *model.Transcript) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

// PerformAnalysis packages the transcript for the content-generation
// collaborator and normalizes whatever comes back. Missing or malformed
// collaborator fields default; a failed collaborator call falls back to a
// locally derived analysis rather than surfacing an error.
func (s *TranscriptService) PerformAnalysis(ctx context.Context, saved *model.SavedTranscript) *model.Analysis {
	t := saved.Transcript
	analysis := &model.Analysis{
		Summary:           deriveSummary(t),
		KeyPoints:         deriveKeyPoints(t),
		ContentType:       model.ContentTypeGeneral,
		SuitablePlatforms: []model.Platform{model.PlatformYouTube},
	}

	if s.contentGen == nil || !s.contentGen.IsConfigured() {
		return analysis
	}

	response, err := s.contentGen.ChatCompletion(ctx, analysisSystemPrompt, buildAnalysisPrompt(t))
	if err != nil {
		s.logger.Warn("content generation failed, using derived analysis",
			zap.String("transcriptId", saved.ID), zap.Error(err))
		return analysis
	}

	applyGeneratedAnalysis(analysis, response)
	return analysis
}

const analysisSystemPrompt = `You are a short-form video content strategist.
Given a transcript you classify its content and suggest target platforms.
Always output your response as valid JSON in the exact format requested.
Do not include any text outside the JSON structure.`

func buildAnalysisPrompt(t *model.Transcript) string {
	words := make([]string, 0, len(t.Keywords))
	for i, k := range t.Keywords {
		if i >= 10 {
			break
		}
		words = append(words, k.Word)
	}

	text := t.Text
	if len(text) > 4000 {
		text = text[:4000]
	}

	return fmt.Sprintf(`Analyze this transcript (duration %.0fs, language %q, top keywords: %s):

%s

Output as JSON: {"summary": "...", "contentType": "educational|entertainment|news|tutorial|interview|general", "suitablePlatforms": ["youtube","tiktok","instagram","linkedin","twitter"]}`,
		t.Duration, t.Language, strings.Join(words, ", "), text)
}

// generatedAnalysis is the loosely shaped collaborator response.
type generatedAnalysis struct {
	Summary           string   `json:"summary"`
	ContentType       string   `json:"contentType"`
	SuitablePlatforms []string `json:"suitablePlatforms"`
}

// applyGeneratedAnalysis overlays well-formed collaborator fields onto the
// derived defaults, ignoring anything unknown or malformed.
func applyGeneratedAnalysis(analysis *model.Analysis, response string) {
	var gen generatedAnalysis
	if err := json.Unmarshal([]byte(extractJSON(response)), &gen); err != nil {
		return
	}

	if gen.Summary != "" {
		analysis.Summary = truncate(gen.Summary, maxSummaryLength)
	}
	if ct := model.ContentType(strings.ToLower(gen.ContentType)); validContentType(ct) {
		analysis.ContentType = ct
	}
	platforms := make([]model.Platform, 0, len(gen.SuitablePlatforms))
	for _, p := range gen.SuitablePlatforms {
		if platform := model.Platform(strings.ToLower(p)); validPlatform(platform) {
			platforms = append(platforms, platform)
		}
	}
	if len(platforms) > 0 {
		analysis.SuitablePlatforms = platforms
	}
}

// extractJSON strips markdown code fences and surrounding prose the
// collaborator may wrap its JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// deriveSummary produces a bounded summary directly from the transcript text.
func deriveSummary(t *model.Transcript) string {
	return truncate(strings.TrimSpace(t.Text), maxSummaryLength)
}

// deriveKeyPoints maps the top-importance keywords back to their originating
// segments.
func deriveKeyPoints(t *model.Transcript) []model.KeyPoint {
	points := make([]model.KeyPoint, 0, maxKeyPoints)
	for _, k := range t.Keywords {
		if len(points) == maxKeyPoints {
			break
		}
		if len(k.Timestamps) == 0 {
			continue
		}
		ts := k.Timestamps[0]
		text := k.Word
		for _, seg := range t.Segments {
			if seg.Start == ts {
				text = seg.Text
				break
			}
		}
		points = append(points, model.KeyPoint{
			Text:      text,
			Keyword:   k.Word,
			Timestamp: ts,
		})
	}
	return points
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-1]) + "…"
}

func validContentType(ct model.ContentType) bool {
	for _, v := range model.ValidContentTypes {
		if ct == v {
			return true
		}
	}
	return false
}

func validPlatform(p model.Platform) bool {
	for _, v := range model.ValidPlatforms {
		if p == v {
			return true
		}
	}
	return false
}
