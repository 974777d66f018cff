package httpapi

import "net/http"

type HealthResponse struct {
	OK        bool   `json:"ok"`
	Service   string `json:"service"`
	TS        string `json:"ts"`
	ProjectID string `json:"projectId"`
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:        true,
		Service:   s.info.Service,
		TS:        s.clk.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ProjectID: s.info.ProjectID,
	})
}
