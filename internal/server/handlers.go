package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nainya/timejump/pkg/daterange"
	"github.com/nainya/timejump/pkg/jump"
	"github.com/nainya/timejump/pkg/timeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type searchResponse struct {
	Query   string       `json:"query"`
	Results []resultJSON `json:"results"`
}

type resultJSON struct {
	Type string `json:"type"`

	// dateRange
	From  *time.Time `json:"from,omitempty"`
	To    *time.Time `json:"to,omitempty"`
	Scale string     `json:"scale,omitempty"`

	// match
	Path        string  `json:"path,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Description string  `json:"description,omitempty"`
	DateTime    string  `json:"dateTime,omitempty"`
}

type revisionResponse struct {
	Revision uint64 `json:"revision"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")

	var scale timeline.ScaleSource
	if name := params.Get("scale"); name != "" {
		sc, err := daterange.ParseScale(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		scale = timeline.FixedScale(sc)
	}

	limit := 0
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	start := time.Now()
	results, ok := s.resolver.SearchAt(q, scale)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := searchResponse{Query: q, Results: make([]resultJSON, 0, len(results))}
	matches := 0
	for _, res := range results {
		switch res.Kind {
		case jump.KindDateRange:
			from, to := res.DateRange.From, res.DateRange.To
			resp.Results = append(resp.Results, resultJSON{
				Type:  res.Kind.String(),
				From:  &from,
				To:    &to,
				Scale: string(res.DateRange.Scale),
			})
		case jump.KindMatch:
			if limit > 0 && matches >= limit {
				continue
			}
			matches++
			resp.Results = append(resp.Results, resultJSON{
				Type:        res.Kind.String(),
				Path:        res.Match.Ref,
				Score:       res.Match.Score,
				Description: res.Match.Document.Description,
				DateTime:    res.Match.Document.DateTime,
			})
		}
	}

	s.log.LogQuery(q, outcomeOf(results), len(resp.Results), time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func outcomeOf(results []jump.Result) string {
	if len(results) == 0 {
		return jump.OutcomeEmpty
	}
	if results[0].Kind == jump.KindDateRange {
		if len(results) > 1 {
			return jump.OutcomeBoth
		}
		return jump.OutcomeDate
	}
	return jump.OutcomeText
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Timeline-Revision", strconv.FormatUint(s.store.Revision(), 10))
	if err := timeline.Encode(w, s.store.Nodes()); err != nil {
		s.log.Error("timeline_encode").Err(err).Msg("Failed to encode timeline")
	}
}

func (s *Server) handlePutTimeline(w http.ResponseWriter, r *http.Request) {
	nodes, err := timeline.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rev, err := s.editor.Replace(nodes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, revisionResponse{Revision: rev})
}

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := timeline.DecodeEvent(http.MaxBytesReader(w, r.Body, maxBodyBytes), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var rev uint64
	if g := r.URL.Query().Get("group"); g != "" {
		path, perr := timeline.ParsePath(g)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		rev, err = s.editor.AppendToGroup(path, ev)
	} else {
		rev, err = s.editor.Append(ev)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, revisionResponse{Revision: rev})
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	path, err := timeline.ParsePath(r.PathValue("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rev, err := s.editor.Remove(path)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, revisionResponse{Revision: rev})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, timeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, timeline.ErrNotGroup), errors.Is(err, timeline.ErrInvalidPath):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
