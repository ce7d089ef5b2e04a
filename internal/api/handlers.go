package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"arena-core/internal/logging"
	"arena-core/internal/replay"
	"arena-core/internal/session"
)

const (
	chartWidth  = 800
	chartHeight = 400
	maxBodySize = 1 << 10
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sessions.Current().View())
}

func (h *routerHandlers) handlePerf(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sessions.Current().Profiler().Snapshot())
}

func (h *routerHandlers) handlePerfWarnings(w http.ResponseWriter, r *http.Request) {
	warnings := h.sessions.Current().Profiler().Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, map[string]any{"warnings": warnings})
}

func (h *routerHandlers) handlePerfFPS(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Current()
	v := s.View()
	writeJSON(w, map[string]any{
		"fps":      s.Profiler().FPS(),
		"loopFps":  v.FPS,
		"uncapped": v.Uncapped,
	})
}

func (h *routerHandlers) handlePerfReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="performance-report.txt"`)
	w.Write([]byte(h.sessions.Current().Profiler().GenerateReport()))
}

func (h *routerHandlers) handlePerfChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.sessions.Current().Profiler().RenderChart(&buf, chartWidth, chartHeight); err != nil {
		logging.For("api").WithError(err).Warn("⚠️ Chart render failed")
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleReplay(w http.ResponseWriter, r *http.Request) {
	rs := h.sessions.Current().Replay()
	if r.URL.Query().Get("format") != "binary" {
		writeJSON(w, rs)
		return
	}
	data, err := rs.MarshalBinary()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="replay.bin"`)
	w.Write(data)
}

func (h *routerHandlers) handleReplayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sessions.Current().ReplayStatus())
}

func (h *routerHandlers) handleReplaySchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, replay.Schema())
}

func (h *routerHandlers) handleArchiveStats(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, "archive disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, h.archive.Stats())
}

func (h *routerHandlers) handleToggleOverlay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"visible": h.sessions.Current().ToggleOverlay()})
}

func (h *routerHandlers) handleToggleUncapped(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"uncapped": h.sessions.Current().ToggleUncapped()})
}

func (h *routerHandlers) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Current().ExportReport(h.reportDir)
	if err != nil {
		logging.For("api").WithError(err).Warn("⚠️ Report export failed")
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Z float64 `json:"z"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !axisOK(req.X) || !axisOK(req.Z) {
		writeError(w, "x and z must be within [-1, 1]", http.StatusBadRequest)
		return
	}

	s := h.sessions.Current()
	s.SetHumanInput(req.X, req.Z)
	writeJSON(w, map[string]any{
		"success": true,
		"source":  s.Control().Source,
	})
}

func (h *routerHandlers) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	src, err := session.ParseSource(req.Source)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := h.sessions.Current()
	if err := s.SetSource(src); err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, session.ErrReplayOnly) {
			code = http.StatusConflict
		}
		writeError(w, err.Error(), code)
		return
	}
	writeJSON(w, map[string]any{"success": true, "source": src})
}

func axisOK(v float64) bool {
	return !math.IsNaN(v) && v >= -1 && v <= 1
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
