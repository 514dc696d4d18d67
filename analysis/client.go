package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	compareEndpoint = "/api/compare"
	healthEndpoint  = "/api/health"
)

// ErrEngineUnavailable marks transport failures and non-2xx responses from
// the analysis engine: the engine is down or unreachable right now.
var ErrEngineUnavailable = errors.New("analysis engine unavailable")

// ErrEngineTimeout marks a comparison call that outlived its deadline. Kept
// distinct from ErrEngineUnavailable so capacity problems are never reported
// as outages.
var ErrEngineTimeout = errors.New("analysis engine request timed out")

// ErrMalformedResponse marks a 2xx response whose body could not be decoded.
var ErrMalformedResponse = errors.New("analysis engine returned a malformed response")

// CompareRequest carries the two image payloads and optional site metadata
// for one structural comparison.
type CompareRequest struct {
	BaselineImage      []byte
	BaselineFilename   string
	ComparisonImage    []byte
	ComparisonFilename string
	MonasteryName      string
	Location           string
}

// EngineResponse mirrors the analysis engine's comparison payload. Pointer
// and slice fields stay nil when the engine omits them; the presenter
// substitutes safe defaults.
type EngineResponse struct {
	SimilarityScore        *float64 `json:"similarity_score"`
	ChangeCount            *int     `json:"change_count"`
	SeverityLevel          string   `json:"severity_level"`
	DifferencePercentage   *float64 `json:"difference_percentage"`
	AffectedAreaPercentage *float64 `json:"affected_area_percentage"`
	AffectedAreas          []string `json:"affected_areas"`
	Recommendations        []string `json:"recommendations"`
	DiffVisualization      string   `json:"diff_visualization"` // base64 image, optional
}

// EngineClient talks to the external analysis engine over HTTP. Deadlines
// are carried by the caller's context; the client never retries.
type EngineClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewEngineClient creates a client for the engine at baseURL
func NewEngineClient(baseURL string) *EngineClient {
	return &EngineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// HealthURL returns the engine's lightweight liveness endpoint, distinct
// from the comparison endpoint.
func (c *EngineClient) HealthURL() string {
	return c.baseURL + healthEndpoint
}

// Compare submits both images plus metadata and decodes the engine's
// response. Failures are classified into the package sentinel errors.
func (c *EngineClient) Compare(ctx context.Context, req CompareRequest) (*EngineResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writeImagePart(writer, "baseline_image", req.BaselineFilename, req.BaselineImage); err != nil {
		return nil, err
	}
	if err := writeImagePart(writer, "comparison_image", req.ComparisonFilename, req.ComparisonImage); err != nil {
		return nil, err
	}
	if req.MonasteryName != "" {
		if err := writer.WriteField("monastery_name", req.MonasteryName); err != nil {
			return nil, fmt.Errorf("failed to write monastery_name field: %w", err)
		}
	}
	if req.Location != "" {
		if err := writer.WriteField("location", req.Location); err != nil {
			return nil, fmt.Errorf("failed to write location field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+compareEndpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build comparison request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("analysis engine returned status %d: %w", resp.StatusCode, ErrEngineUnavailable)
	}

	var engineResp EngineResponse
	if err := json.NewDecoder(resp.Body).Decode(&engineResp); err != nil {
		return nil, fmt.Errorf("failed to decode comparison response: %w", ErrMalformedResponse)
	}
	return &engineResp, nil
}

func writeImagePart(writer *multipart.Writer, field, filename string, payload []byte) error {
	if filename == "" {
		filename = field + ".jpg"
	}
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("failed to write %s payload: %w", field, err)
	}
	return nil
}

// classifyTransportError separates deadline expiry from every other
// transport failure (refused connections, DNS errors, resets)
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("comparison call exceeded its deadline: %w", ErrEngineTimeout)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("comparison call exceeded its deadline: %w", ErrEngineTimeout)
	}
	return fmt.Errorf("failed to reach analysis engine: %v: %w", err, ErrEngineUnavailable)
}
