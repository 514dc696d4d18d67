package handlers

import (
	"net/http"

	"github.com/heritagewatch/monitorbackend/services"
)

type HealthHandler struct {
	Monitor *services.HealthMonitor
}

// GetHealth returns the monitor's last snapshot. The read never blocks and
// never triggers a probe; the snapshot may be up to one interval old.
func (hh *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hh.Monitor.CurrentStatus())
}
