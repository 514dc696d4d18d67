package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/heritagewatch/monitorbackend/analysis"
	"github.com/heritagewatch/monitorbackend/metrics"
	"github.com/heritagewatch/monitorbackend/registry"
)

// BaselineSource is the read-only slice of the registry the comparison
// service needs: existence/availability via Resolve, the payload via RawBlob.
type BaselineSource interface {
	Resolve(id string) (registry.BaselineView, error)
	RawBlob(id string) ([]byte, bool)
}

// EngineCaller dispatches a prepared comparison to the analysis engine.
type EngineCaller interface {
	Compare(ctx context.Context, req analysis.CompareRequest) (*analysis.EngineResponse, error)
}

// ComparisonMetadata carries the optional site context forwarded to the
// analysis engine alongside the two images.
type ComparisonMetadata struct {
	MonasteryName string
	Location      string
}

// ComparisonService validates comparison requests, resolves the baseline
// binary, dispatches to the analysis engine, and translates failures into
// the typed taxonomy. Stateless across calls; it never mutates the registry
// and never retries.
type ComparisonService struct {
	baselines BaselineSource
	engine    EngineCaller
	monitor   *HealthMonitor // advisory only, may be nil
	timeout   time.Duration
}

// NewComparisonService creates a new comparison service
func NewComparisonService(baselines BaselineSource, engine EngineCaller, monitor *HealthMonitor, timeout time.Duration) *ComparisonService {
	return &ComparisonService{
		baselines: baselines,
		engine:    engine,
		monitor:   monitor,
		timeout:   timeout,
	}
}

// Compare runs one structural comparison. The validation sequence is fixed:
// comparison-image presence, then baseline existence, then binary
// availability, then an advisory health read, then dispatch. It
// short-circuits at the first failure so the caller always gets the most
// specific error for a given set of problems.
func (s *ComparisonService) Compare(ctx context.Context, baselineID string, comparisonBlob []byte, meta ComparisonMetadata) (*ComparisonResult, error) {
	if len(comparisonBlob) == 0 {
		metrics.ComparisonsTotal.WithLabelValues(outcomeLabel(KindValidationError)).Inc()
		return nil, newComparisonError(KindValidationError, "a comparison image is required")
	}

	view, err := s.baselines.Resolve(baselineID)
	if err != nil {
		if errors.Is(err, registry.ErrBaselineNotFound) {
			metrics.ComparisonsTotal.WithLabelValues(outcomeLabel(KindValidationError)).Inc()
			return nil, newComparisonError(KindValidationError, fmt.Sprintf("no baseline exists with id %q; select a baseline from the registry", baselineID))
		}
		return nil, fmt.Errorf("failed to resolve baseline %s: %w", baselineID, err)
	}

	blob, ok := s.baselines.RawBlob(baselineID)
	if !view.BinaryAvailable || !ok {
		metrics.ComparisonsTotal.WithLabelValues(outcomeLabel(KindStaleBaseline)).Inc()
		return nil, newComparisonError(KindStaleBaseline, fmt.Sprintf(
			"the image for baseline %q is no longer held in this session; re-upload the baseline image via the baseline upload form, then run the comparison again", view.DisplayName))
	}

	// advisory read: a stale OFFLINE reading must never gate the dispatch
	if s.monitor != nil {
		if status := s.monitor.CurrentStatus(); status.AnalysisEngine == StatusOffline {
			log.Printf("Comparison for baseline %s: analysis engine read OFFLINE at last probe, dispatching anyway", baselineID)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	engineReq := analysis.CompareRequest{
		BaselineImage:      blob,
		BaselineFilename:   view.Filename,
		ComparisonImage:    comparisonBlob,
		ComparisonFilename: "comparison.jpg",
		MonasteryName:      meta.MonasteryName,
		Location:           meta.Location,
	}

	resp, err := s.engine.Compare(reqCtx, engineReq)
	if err != nil {
		return nil, s.translateEngineError(err)
	}

	metrics.ComparisonsTotal.WithLabelValues("success").Inc()
	return PresentResult(resp), nil
}

func (s *ComparisonService) translateEngineError(err error) error {
	switch {
	case errors.Is(err, analysis.ErrEngineTimeout):
		metrics.ComparisonsTotal.WithLabelValues(outcomeLabel(KindTimeout)).Inc()
		return newComparisonError(KindTimeout, fmt.Sprintf(
			"the analysis engine did not respond within %s; the comparison was aborted, try again when the engine is less loaded", s.timeout))
	case errors.Is(err, analysis.ErrEngineUnavailable):
		metrics.ComparisonsTotal.WithLabelValues(outcomeLabel(KindServiceUnavailable)).Inc()
		return newComparisonError(KindServiceUnavailable,
			"the analysis engine is currently unreachable; try again later")
	case errors.Is(err, analysis.ErrMalformedResponse):
		metrics.ComparisonsTotal.WithLabelValues(outcomeLabel(KindValidationError)).Inc()
		return newComparisonError(KindValidationError,
			"the analysis engine returned a response that could not be read")
	default:
		return fmt.Errorf("comparison dispatch failed: %w", err)
	}
}

func outcomeLabel(kind ComparisonErrorKind) string {
	return strings.ToLower(string(kind))
}
