package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heritagewatch/monitorbackend/metrics"
	"github.com/heritagewatch/monitorbackend/registry"
	"github.com/heritagewatch/monitorbackend/utils"
	"github.com/heritagewatch/monitorbackend/workers"
)

const maxUploadBytes = 32 << 20 // 32 MiB multipart memory ceiling

type BaselineHandler struct {
	Registry *registry.Registry
	Previews *workers.PreviewGenerator
}

func (bh *BaselineHandler) CreateBaseline(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "VALIDATION_ERROR", "A baseline image file is required")
		return
	}
	defer file.Close()

	if !utils.IsRasterImage(header.Filename) {
		WriteAPIError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unsupported image type: "+header.Filename)
		return
	}

	blob, err := io.ReadAll(file)
	if err != nil {
		log.Printf("Error reading baseline upload %s: %v", header.Filename, err)
		WriteAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not read the uploaded image")
		return
	}

	input := registry.BaselineCreateInput{
		Location:           r.FormValue("location"),
		StructureComponent: r.FormValue("structure_component"),
		CaptureDate:        r.FormValue("capture_date"),
		CameraDetails:      r.FormValue("camera_details"),
		Notes:              r.FormValue("notes"),
		Filename:           header.Filename,
		Blob:               blob,
	}

	view, err := bh.Registry.Save(input)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidInput) {
			WriteAPIError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Both location and structure_component are required")
			return
		}
		log.Printf("Error saving baseline for %s: %v", header.Filename, err)
		WriteAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save baseline")
		return
	}

	metrics.BaselinesSavedTotal.WithLabelValues(persistedLabel(view.Persisted)).Inc()

	if bh.Previews != nil {
		bh.Previews.QueueJob(workers.PreviewJob{
			BaselineID: view.ID,
			Filename:   view.Filename,
			Blob:       blob,
		})
	}

	writeJSON(w, http.StatusCreated, view)
}

func (bh *BaselineHandler) ListBaselines(w http.ResponseWriter, r *http.Request) {
	views := bh.Registry.List()
	if views == nil {
		views = []registry.BaselineView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (bh *BaselineHandler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "baseline_id")

	view, err := bh.Registry.Resolve(id)
	if err != nil {
		if errors.Is(err, registry.ErrBaselineNotFound) {
			WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "Baseline not found")
			return
		}
		log.Printf("Error resolving baseline %s: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve baseline")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func persistedLabel(persisted bool) string {
	if persisted {
		return "true"
	}
	return "false"
}
