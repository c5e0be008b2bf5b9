package http

import (
	"net/http"
	"time"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
)

type statsResponse struct {
	State         types.IndexState `json:"state"`
	TotalRecords  int              `json:"total_records"`
	ModelID       string           `json:"model_id,omitempty"`
	Dimension     int              `json:"dimension,omitempty"`
	Metric        string           `json:"metric,omitempty"`
	Fingerprint   string           `json:"fingerprint,omitempty"`
	BuiltAt       *time.Time       `json:"built_at,omitempty"`
	LoadErrors    int              `json:"load_errors"`
	LastRefreshAt *time.Time       `json:"last_refresh_at,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toStatsResponse(st model.IndexStats) statsResponse {
	return statsResponse{
		State:         st.State,
		TotalRecords:  st.Records,
		ModelID:       st.ModelID,
		Dimension:     st.Dimension,
		Metric:        st.Metric,
		Fingerprint:   st.Fingerprint,
		BuiltAt:       optionalTime(st.BuiltAt),
		LoadErrors:    st.LoadErrors,
		LastRefreshAt: optionalTime(st.LastRefreshAt),
		LastError:     st.LastError,
	}
}

type healthResponse struct {
	Status  string        `json:"status"`
	Service string        `json:"service"`
	Version string        `json:"version,omitempty"`
	Index   statsResponse `json:"index"`
}

// healthHandler reports healthy once the index has served at least once
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	st := s.search.Stats()
	resp := healthResponse{
		Status:  "healthy",
		Service: s.serviceName,
		Version: s.version,
		Index:   toStatsResponse(st),
	}
	status := http.StatusOK
	if !st.EverReady {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	writeJSON(r.Context(), w, status, resp)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, toStatsResponse(s.search.Stats()))
}
