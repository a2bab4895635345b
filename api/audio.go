package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"call-filter/domain"
	"call-filter/infrastructure"

	"github.com/julienschmidt/httprouter"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) HandleUpload() httprouter.Handle {
	type Output struct {
		ID         string             `json:"id"`
		Filename   string             `json:"filename"`
		Transcript string             `json:"transcript"`
		Phrases    []*domain.Phrase   `json:"phrases"`
		Confidence float64            `json:"confidence"`
		ScamResult *domain.ScamResult `json:"scam_result"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		maxSize := s.Config.MaxUploadSize
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleUpload", nil), http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
		if err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleUpload", header.Filename), http.StatusBadRequest)
			return
		}
		if int64(len(data)) > maxSize {
			s.Response(w, r, s.Error(http.StatusRequestEntityTooLarge, "File too large.", "HandleUpload", header.Filename), http.StatusRequestEntityTooLarge)
			return
		}

		call, err := s.Pipeline.ProcessUpload(r.Context(), header.Filename, data)
		switch {
		case errors.Is(err, infrastructure.ErrInvalidWAV):
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleUpload", header.Filename), http.StatusBadRequest)
			return
		case err != nil:
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleUpload", header.Filename), http.StatusInternalServerError)
			return
		}

		s.Response(w, r, &Output{
			ID:         call.ID,
			Filename:   call.Filename,
			Transcript: call.Transcript,
			Phrases:    call.Phrases,
			Confidence: call.Confidence,
			ScamResult: call.ScamResult,
		}, http.StatusOK)
	}
}

func (s *Server) HandleListCalls() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		limit, err := listLimit(r)
		if err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleListCalls", r.URL.RawQuery), http.StatusBadRequest)
			return
		}
		calls, err := s.Store.ListCalls(r.Context(), limit)
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleListCalls", limit), http.StatusInternalServerError)
			return
		}
		s.Response(w, r, calls, http.StatusOK)
	}
}

func (s *Server) HandleGetCall() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		call, ok := s.loadCall(w, r, p, "HandleGetCall")
		if !ok {
			return
		}
		s.Response(w, r, call, http.StatusOK)
	}
}

func (s *Server) HandleStatistics() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		stats, err := s.Store.Statistics(r.Context())
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleStatistics", nil), http.StatusInternalServerError)
			return
		}
		s.Response(w, r, stats, http.StatusOK)
	}
}

// loadCall writes the error response itself and reports whether the call was found.
func (s *Server) loadCall(w http.ResponseWriter, r *http.Request, p httprouter.Params, function string) (*domain.Call, bool) {
	id := p.ByName("id")
	call, err := s.Store.GetCall(r.Context(), id)
	switch {
	case errors.Is(err, infrastructure.ErrNotFound):
		s.Response(w, r, s.Error(http.StatusNotFound, "Call not found.", function, id), http.StatusNotFound)
		return nil, false
	case err != nil:
		s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), function, id), http.StatusInternalServerError)
		return nil, false
	}
	return call, true
}

func listLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
