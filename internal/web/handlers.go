package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/dataquality/internal/core"
	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/serialize"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

type createDatasetRequest struct {
	Name    string               `json:"name"`
	Mapping dataset.FieldMapping `json:"mapping"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"reports": s.service.LimiterStatus(),
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.ListFiles()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, files)
}

// handleSelectFile returns a file's metadata with a confirmation message.
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.FileMetadata(r.URL.Query().Get("name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message":        "File selected successfully!",
		"filename":       meta.Filename,
		"features":       meta.Features,
		"rows":           meta.Rows,
		"missing_values": meta.MissingValues,
		"cols":           meta.Cols,
	})
}

func (s *Server) handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.FileMetadata(r.URL.Query().Get("name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, meta)
}

// handleData returns a file's rows, or only its header when header is true.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")

	if header, _ := strconv.ParseBool(q.Get("header")); header {
		cols, err := s.service.Header(name)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"cols": cols})
		return
	}

	rows, err := s.service.Data(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": normalized(rows)})
}

func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Name == "" {
		s.respondError(w, r, fmt.Errorf("%w: name is required", core.ErrInvalidRequest))
		return
	}

	meta, err := s.service.CreateDataset(r.Context(), req.Name, req.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, normalized(meta))
}

// handleQueryDataset filters a registered dataset. mapping is an optional
// JSON object that lets the query use semantic field names.
func (s *Server) handleQueryDataset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mapping, err := mappingParam(q.Get("mapping"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows, err := s.service.QueryDataset(r.Context(), q.Get("name"), q.Get("query"), mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, normalized(rows))
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListDatasets(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, r, http.StatusOK, names)
}

func (s *Server) handleDropDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DropDataset(r.Context(), r.URL.Query().Get("name")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	index, err := strconv.Atoi(q.Get("index"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: index must be an integer", core.ErrInvalidRequest))
		return
	}
	mapping, err := mappingParam(q.Get("mapping"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.Record(r.Context(), q.Get("name"), index, mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, normalized(view.AsMap()))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req core.ReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	start := time.Now()
	rep, err := s.service.CreateReport(r.Context(), req)
	if err != nil {
		s.metrics.ObserveReport(core.MapError(err).Code, time.Since(start))
		s.respondError(w, r, err)
		return
	}
	s.metrics.ObserveReport("ok", time.Since(start))

	logging.FromContext(r.Context()).Debug("report response", "report_id", rep.ID)
	writeJSON(w, r, http.StatusOK, rep.ToJSON())
}

func (s *Server) handleReportPlan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Plan())
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.LimiterStatus())
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: empty body", core.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

// mappingParam parses an optional JSON mapping query parameter.
func mappingParam(raw string) (dataset.FieldMapping, error) {
	if raw == "" {
		return nil, nil
	}
	var m dataset.FieldMapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: mapping must be a JSON object of strings: %v", core.ErrInvalidRequest, err)
	}
	return m, nil
}

// normalized returns v's JSON-safe form, or an empty list when nothing
// representable remains.
func normalized(v any) any {
	out, ok := serialize.Normalize(v)
	if !ok || out == nil {
		return []any{}
	}
	return out
}
