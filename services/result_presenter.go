package services

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/heritagewatch/monitorbackend/analysis"
)

// SeverityLevel is the qualitative classification of detected change.
type SeverityLevel string

const (
	SeverityNone     SeverityLevel = "NONE"
	SeverityLow      SeverityLevel = "LOW"
	SeverityModerate SeverityLevel = "MODERATE"
	SeverityHigh     SeverityLevel = "HIGH"
	SeverityCritical SeverityLevel = "CRITICAL"
)

// ComparisonResult is the stable shape callers consume. Every field is
// populated: slices are never nil, percentages default to zero, so callers
// need no null-checks beyond the top level. Results are produced fresh per
// request and never cached.
type ComparisonResult struct {
	SimilarityScore        float64       `json:"similarity_score"`
	SimilarityPercentage   float64       `json:"similarity_percentage"`
	ChangeCount            int           `json:"change_count"`
	SeverityLevel          SeverityLevel `json:"severity_level"`
	DifferencePercentage   float64       `json:"difference_percentage"`
	AffectedAreaPercentage float64       `json:"affected_area_percentage"`
	AffectedAreas          []string      `json:"affected_areas"`
	Recommendations        []string      `json:"recommendations"`
	DiffVisualization      []byte        `json:"diff_visualization,omitempty"`
	AnalyzedAt             time.Time     `json:"analyzed_at"`
}

// PresentResult maps the engine's raw response onto the stable result shape,
// substituting safe defaults for anything the engine omitted. Pure: no side
// effects, no failure modes.
func PresentResult(resp *analysis.EngineResponse) *ComparisonResult {
	result := &ComparisonResult{
		SeverityLevel:   normalizeSeverity(resp.SeverityLevel),
		AffectedAreas:   []string{},
		Recommendations: []string{},
		AnalyzedAt:      time.Now().UTC(),
	}

	if resp.SimilarityScore != nil {
		result.SimilarityScore = clampUnit(*resp.SimilarityScore)
	}
	result.SimilarityPercentage = result.SimilarityScore * 100

	if resp.ChangeCount != nil && *resp.ChangeCount > 0 {
		result.ChangeCount = *resp.ChangeCount
	}
	if resp.DifferencePercentage != nil {
		result.DifferencePercentage = clampPercentage(*resp.DifferencePercentage)
	}
	if resp.AffectedAreaPercentage != nil {
		result.AffectedAreaPercentage = clampPercentage(*resp.AffectedAreaPercentage)
	}
	if resp.AffectedAreas != nil {
		result.AffectedAreas = resp.AffectedAreas
	}
	if resp.Recommendations != nil {
		result.Recommendations = resp.Recommendations
	}
	result.DiffVisualization = decodeVisualization(resp.DiffVisualization)

	return result
}

// normalizeSeverity maps the engine's free-form severity label onto the
// closed enum; anything unrecognized reads as NONE.
func normalizeSeverity(label string) SeverityLevel {
	switch SeverityLevel(strings.ToUpper(strings.TrimSpace(label))) {
	case SeverityLow:
		return SeverityLow
	case SeverityModerate:
		return SeverityModerate
	case SeverityHigh:
		return SeverityHigh
	case SeverityCritical:
		return SeverityCritical
	default:
		return SeverityNone
	}
}

// decodeVisualization accepts either a bare base64 string or a data URI and
// returns the decoded bytes, or nil when absent or undecodable.
func decodeVisualization(encoded string) []byte {
	if encoded == "" {
		return nil
	}
	if idx := strings.Index(encoded, "base64,"); idx >= 0 {
		encoded = encoded[idx+len("base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return decoded
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPercentage(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
