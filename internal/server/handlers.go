package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/roach88/readtrack/internal/ir"
	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/store"
)

type admitResponse struct {
	Admitted bool            `json:"admitted"`
	Checksum string          `json:"checksum,omitempty"`
	Snapshot *store.Snapshot `json:"snapshot,omitempty"`
}

type replaceResponse struct {
	Sources  int             `json:"sources"`
	Records  int             `json:"records"`
	Snapshot *store.Snapshot `json:"snapshot,omitempty"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	configs := s.tracker.AllConfigs()
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, configs)
	return nil
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	records := s.tracker.AllRecords()
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, records)
	return nil
}

func (s *Server) handleAdmitRecord(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	v, err := ir.ParseValue(body)
	if err != nil {
		return errBadRequest("body is not a valid record value", err)
	}
	v = progress.StampReadAt(v, s.now().UnixMilli())

	s.mu.Lock()
	defer s.mu.Unlock()

	novelID, sourceURL := progress.RecordIdentity(v)
	prev := s.tracker.Serialize()
	if !s.tracker.AdmitRecord(v) {
		respondJSON(w, http.StatusOK, admitResponse{Admitted: false})
		return nil
	}
	snap, err := s.persist(r.Context(), "admit", prev)
	if err != nil {
		return err
	}
	resp := admitResponse{Admitted: true, Snapshot: snap}
	resp.Checksum, _ = progress.RecordChecksum(s.tracker, novelID, sourceURL)
	respondJSON(w, http.StatusOK, resp)
	return nil
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	novelID, sourceURL := q.Get("novelId"), q.Get("sourceUrl")
	if novelID == "" || sourceURL == "" {
		return errBadRequest("novelId and sourceUrl are required", nil)
	}

	s.mu.Lock()
	found := s.tracker.Exists(novelID, sourceURL)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]bool{"exists": found})
	return nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	buf := s.tracker.Serialize()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
	return nil
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.tracker.Serialize()
	s.tracker.ReplaceAll(body)
	snap, err := s.persist(r.Context(), "replace", prev)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, replaceResponse{
		Sources:  s.tracker.NumConfigs(),
		Records:  s.tracker.NumRecords(),
		Snapshot: snap,
	})
	return nil
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) error {
	if s.snaps == nil {
		respondJSON(w, http.StatusOK, []store.Snapshot{})
		return nil
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errBadRequest("limit must be a non-negative integer", err)
		}
		limit = n
	}

	history, err := s.snaps.History(r.Context(), limit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if history == nil {
		history = []store.Snapshot{}
	}
	respondJSON(w, http.StatusOK, history)
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBufferBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &httpError{Code: http.StatusRequestEntityTooLarge, Message: "body too large", cause: err}
		}
		return nil, errBadRequest("could not read body", err)
	}
	return body, nil
}
