package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/heritagewatch/monitorbackend/services"
)

// ComparisonRunner is the slice of the comparison service this handler needs.
type ComparisonRunner interface {
	Compare(ctx context.Context, baselineID string, comparisonBlob []byte, meta services.ComparisonMetadata) (*services.ComparisonResult, error)
}

type ComparisonHandler struct {
	Service ComparisonRunner
}

// RunComparison accepts a multipart form (baseline_id, image, optional site
// metadata) and returns the comparison result. Input validation beyond form
// parsing is deliberately left to the service so the error ordering stays in
// one place.
func (ch *ComparisonHandler) RunComparison(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart form: "+err.Error())
		return
	}

	var blob []byte
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		blob, err = io.ReadAll(file)
		if err != nil {
			log.Printf("Error reading comparison upload: %v", err)
			WriteAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not read the uploaded image")
			return
		}
	}

	meta := services.ComparisonMetadata{
		MonasteryName: r.FormValue("monastery_name"),
		Location:      r.FormValue("location"),
	}

	result, err := ch.Service.Compare(r.Context(), r.FormValue("baseline_id"), blob, meta)
	if err != nil {
		WriteComparisonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
