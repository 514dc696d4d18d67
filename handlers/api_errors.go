package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/heritagewatch/monitorbackend/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteComparisonError maps a comparison failure onto the standardized error
// body. Timeouts and outages get distinct status codes so operators can tell
// capacity problems from hard failures.
func WriteComparisonError(w http.ResponseWriter, err error) {
	var compErr *services.ComparisonError
	if !errors.As(err, &compErr) {
		log.Printf("Unexpected comparison error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Comparison failed unexpectedly")
		return
	}

	status := http.StatusInternalServerError
	switch compErr.Kind {
	case services.KindValidationError:
		status = http.StatusBadRequest
	case services.KindStaleBaseline:
		status = http.StatusConflict
	case services.KindServiceUnavailable:
		status = http.StatusBadGateway
	case services.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	WriteAPIError(w, status, string(compErr.Kind), compErr.Message)
}
