package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout bounds all probes together.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one optional dependency (the delivery log database).
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// componentStatus is the health of one probe in an unhealthy response.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// HandleHealth runs every probe concurrently. It answers 200 "ok" when all of
// them pass (or none are registered) and 503 with per-component JSON
// otherwise.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if len(s.HealthProbes) == 0 {
		Text(w, http.StatusOK, "ok")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	errs := make([]error, len(s.HealthProbes))
	var wg sync.WaitGroup
	for i, probe := range s.HealthProbes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rvr := recover(); rvr != nil {
					errs[i] = fmt.Errorf("probe panicked: %v", rvr)
				}
			}()
			errs[i] = probe.Check(ctx)
		}()
	}
	wg.Wait()

	resp := healthResponse{Status: "healthy", Components: make(map[string]componentStatus, len(errs))}
	for i, probe := range s.HealthProbes {
		if errs[i] != nil {
			resp.Status = "unhealthy"
			resp.Components[probe.Name()] = componentStatus{Status: "unhealthy", Message: errs[i].Error()}
			continue
		}
		resp.Components[probe.Name()] = componentStatus{Status: "healthy"}
	}

	if resp.Status == "healthy" {
		Text(w, http.StatusOK, "ok")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(resp)
}
