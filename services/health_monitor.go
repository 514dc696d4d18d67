package services

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/heritagewatch/monitorbackend/metrics"
)

// DependencyStatus is the observed liveness of one upstream dependency.
type DependencyStatus string

const (
	StatusOnline  DependencyStatus = "ONLINE"
	StatusOffline DependencyStatus = "OFFLINE"
	StatusUnknown DependencyStatus = "UNKNOWN"
)

// HealthStatus is a point-in-time snapshot of both upstream dependencies.
// Before the first probe completes both fields read UNKNOWN.
type HealthStatus struct {
	Gateway        DependencyStatus `json:"gateway"`
	AnalysisEngine DependencyStatus `json:"analysis_engine"`
	LastCheckedAt  time.Time        `json:"last_checked_at"`
}

// HealthMonitor periodically probes the gateway and the analysis engine.
// Probes are informational only: nothing else in the system blocks or fails
// because of what the monitor reports, since a reading can be stale by up to
// one interval.
type HealthMonitor struct {
	gatewayHealthURL string
	engineHealthURL  string
	probeTimeout     time.Duration
	httpClient       *http.Client

	mu     sync.RWMutex
	status HealthStatus

	started  bool
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewHealthMonitor creates a monitor for the two given liveness endpoints.
// probeTimeout bounds each individual check; it is deliberately much shorter
// than the comparison timeout.
func NewHealthMonitor(gatewayHealthURL, engineHealthURL string, probeTimeout time.Duration) *HealthMonitor {
	return &HealthMonitor{
		gatewayHealthURL: gatewayHealthURL,
		engineHealthURL:  engineHealthURL,
		probeTimeout:     probeTimeout,
		httpClient:       &http.Client{},
		status: HealthStatus{
			Gateway:        StatusUnknown,
			AnalysisEngine: StatusUnknown,
		},
		stopChan: make(chan struct{}),
	}
}

// Start begins the repeating probe. The first probe fires immediately, not
// after the first interval. Calling Start twice is a no-op.
func (m *HealthMonitor) Start(interval time.Duration) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.ProbeOnce(context.Background())
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.ProbeOnce(context.Background())
			case <-m.stopChan:
				return
			}
		}
	}()
	log.Printf("Health monitor started (interval %s, probe timeout %s)", interval, m.probeTimeout)
}

// ProbeOnce checks both dependencies concurrently, each under its own
// timeout, and publishes the combined snapshot once both have settled. One
// slow dependency never delays the other's measurement beyond its own
// deadline. Probes never return an error: failures map to OFFLINE.
func (m *HealthMonitor) ProbeOnce(ctx context.Context) HealthStatus {
	var gateway, engine DependencyStatus
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		gateway = m.probe(ctx, "gateway", m.gatewayHealthURL)
	}()
	go func() {
		defer wg.Done()
		engine = m.probe(ctx, "analysis_engine", m.engineHealthURL)
	}()
	wg.Wait()

	status := HealthStatus{
		Gateway:        gateway,
		AnalysisEngine: engine,
		LastCheckedAt:  time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	metrics.SetDependencyUp("gateway", gateway == StatusOnline)
	metrics.SetDependencyUp("analysis_engine", engine == StatusOnline)
	return status
}

// CurrentStatus returns the last published snapshot without blocking
func (m *HealthMonitor) CurrentStatus() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Stop cancels the repeating probe and waits for it to exit; idempotent.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
}

func (m *HealthMonitor) probe(ctx context.Context, dependency, healthURL string) DependencyStatus {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues(dependency).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		log.Printf("Health probe for %s could not be built: %v", dependency, err)
		return StatusOffline
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return StatusOffline
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return StatusOnline
	}
	return StatusOffline
}
