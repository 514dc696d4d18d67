package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/heritagewatch/monitorbackend/analysis"
	"github.com/heritagewatch/monitorbackend/registry"
	"github.com/heritagewatch/monitorbackend/services"
)

type stubBaselines struct {
	views map[string]registry.BaselineView
	blobs map[string][]byte
}

func (s *stubBaselines) Resolve(id string) (registry.BaselineView, error) {
	view, ok := s.views[id]
	if !ok {
		return registry.BaselineView{}, registry.ErrBaselineNotFound
	}
	return view, nil
}

func (s *stubBaselines) RawBlob(id string) ([]byte, bool) {
	blob, ok := s.blobs[id]
	return blob, ok
}

type stubEngine struct {
	resp   *analysis.EngineResponse
	err    error
	gotReq *analysis.CompareRequest
}

func (e *stubEngine) Compare(ctx context.Context, req analysis.CompareRequest) (*analysis.EngineResponse, error) {
	e.gotReq = &req
	if e.err != nil {
		return nil, e.err
	}
	return e.resp, nil
}

func availableBaseline(id string) *stubBaselines {
	view := registry.BaselineView{BinaryAvailable: true}
	view.ID = id
	view.DisplayName = "Main Hall - North Wall"
	view.Filename = "baseline.jpg"
	return &stubBaselines{
		views: map[string]registry.BaselineView{id: view},
		blobs: map[string][]byte{id: []byte("baseline-bytes")},
	}
}

func comparisonKind(t *testing.T, err error) services.ComparisonErrorKind {
	t.Helper()
	var compErr *services.ComparisonError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected a ComparisonError, got %v", err)
	}
	return compErr.Kind
}

func TestMissingComparisonImageCheckedFirst(t *testing.T) {
	// even with an unknown baseline id, the missing image must win
	svc := services.NewComparisonService(&stubBaselines{}, &stubEngine{}, nil, time.Second)

	_, err := svc.Compare(context.Background(), "no-such-baseline", nil, services.ComparisonMetadata{})
	if kind := comparisonKind(t, err); kind != services.KindValidationError {
		t.Errorf("expected VALIDATION_ERROR, got %s", kind)
	}
}

func TestUnknownBaselineIsValidationError(t *testing.T) {
	svc := services.NewComparisonService(&stubBaselines{}, &stubEngine{}, nil, time.Second)

	_, err := svc.Compare(context.Background(), "no-such-baseline", []byte("img"), services.ComparisonMetadata{})
	if kind := comparisonKind(t, err); kind != services.KindValidationError {
		t.Errorf("expected VALIDATION_ERROR, got %s", kind)
	}
}

func TestStaleBaselineInstructsReupload(t *testing.T) {
	view := registry.BaselineView{BinaryAvailable: false}
	view.ID = "b1"
	view.DisplayName = "Main Hall - North Wall"
	baselines := &stubBaselines{
		views: map[string]registry.BaselineView{"b1": view},
		blobs: map[string][]byte{},
	}
	engine := &stubEngine{}
	svc := services.NewComparisonService(baselines, engine, nil, time.Second)

	_, err := svc.Compare(context.Background(), "b1", []byte("img"), services.ComparisonMetadata{})
	var compErr *services.ComparisonError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected a ComparisonError, got %v", err)
	}
	if compErr.Kind != services.KindStaleBaseline {
		t.Errorf("expected STALE_BASELINE, got %s", compErr.Kind)
	}
	if !strings.Contains(compErr.Message, "re-upload") {
		t.Errorf("stale baseline message must instruct a re-upload, got %q", compErr.Message)
	}
	if engine.gotReq != nil {
		t.Error("stale baseline must never reach the engine")
	}
}

func TestTimeoutAndUnavailableAreDistinct(t *testing.T) {
	cases := []struct {
		name      string
		engineErr error
		wantKind  services.ComparisonErrorKind
	}{
		{"deadline expiry", analysis.ErrEngineTimeout, services.KindTimeout},
		{"connection refused", analysis.ErrEngineUnavailable, services.KindServiceUnavailable},
	}

	var kinds []services.ComparisonErrorKind
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := services.NewComparisonService(availableBaseline("b1"), &stubEngine{err: tc.engineErr}, nil, time.Second)
			_, err := svc.Compare(context.Background(), "b1", []byte("img"), services.ComparisonMetadata{})
			kind := comparisonKind(t, err)
			if kind != tc.wantKind {
				t.Errorf("expected %s, got %s", tc.wantKind, kind)
			}
			kinds = append(kinds, kind)
		})
	}

	if len(kinds) == 2 && kinds[0] == kinds[1] {
		t.Error("timeout and unavailability must never collapse into one kind")
	}
}

func TestMalformedEngineResponseIsValidationError(t *testing.T) {
	svc := services.NewComparisonService(availableBaseline("b1"), &stubEngine{err: analysis.ErrMalformedResponse}, nil, time.Second)

	_, err := svc.Compare(context.Background(), "b1", []byte("img"), services.ComparisonMetadata{})
	if kind := comparisonKind(t, err); kind != services.KindValidationError {
		t.Errorf("expected VALIDATION_ERROR, got %s", kind)
	}
}

func TestSuccessfulCompare(t *testing.T) {
	score := 0.42
	engine := &stubEngine{resp: &analysis.EngineResponse{
		SimilarityScore: &score,
		SeverityLevel:   "moderate",
	}}
	svc := services.NewComparisonService(availableBaseline("b1"), engine, nil, time.Second)

	meta := services.ComparisonMetadata{MonasteryName: "Rumtek", Location: "Sikkim"}
	result, err := svc.Compare(context.Background(), "b1", []byte("comparison-bytes"), meta)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if result.SimilarityScore != 0.42 || result.SimilarityPercentage != 42 {
		t.Errorf("unexpected similarity: %+v", result)
	}
	if result.SeverityLevel != services.SeverityModerate {
		t.Errorf("unexpected severity: %s", result.SeverityLevel)
	}
	if result.AffectedAreas == nil || result.Recommendations == nil {
		t.Error("result slices must never be nil")
	}

	if engine.gotReq == nil {
		t.Fatal("engine was never called")
	}
	if string(engine.gotReq.BaselineImage) != "baseline-bytes" {
		t.Error("baseline payload not forwarded")
	}
	if string(engine.gotReq.ComparisonImage) != "comparison-bytes" {
		t.Error("comparison payload not forwarded")
	}
	if engine.gotReq.MonasteryName != "Rumtek" || engine.gotReq.Location != "Sikkim" {
		t.Error("site metadata not forwarded")
	}
}
