package api

import (
	"errors"
	"net/http"

	"call-filter/domain"
	"call-filter/events"
	"call-filter/infrastructure"
	"call-filter/processing"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
)

// HandleAdminIndex is the admin landing page: totals and the latest calls.
func (s *Server) HandleAdminIndex() httprouter.Handle {
	type Output struct {
		Statistics *domain.Statistics `json:"statistics"`
		Recent     []*domain.Call     `json:"recent"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		stats, err := s.Store.Statistics(r.Context())
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleAdminIndex", nil), http.StatusInternalServerError)
			return
		}
		recent, err := s.Store.ListCalls(r.Context(), 10)
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleAdminIndex", nil), http.StatusInternalServerError)
			return
		}
		s.Response(w, r, &Output{Statistics: stats, Recent: recent}, http.StatusOK)
	}
}

func (s *Server) HandleAdminListCalls() httprouter.Handle {
	return s.HandleListCalls()
}

func (s *Server) HandleAdminGetCall() httprouter.Handle {
	type Output struct {
		*domain.Call
		Notifications []*domain.Notification `json:"notifications"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		call, ok := s.loadCall(w, r, p, "HandleAdminGetCall")
		if !ok {
			return
		}
		notifications, err := s.Store.ListNotifications(r.Context(), call.ID)
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleAdminGetCall", call.ID), http.StatusInternalServerError)
			return
		}
		s.Response(w, r, &Output{Call: call, Notifications: notifications}, http.StatusOK)
	}
}

// HandleLabelCall overrides the detector's verdict. Later reprocessing keeps the label.
func (s *Server) HandleLabelCall() httprouter.Handle {
	type Input struct {
		IsScam *bool `json:"is_scam"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input := &Input{}
		if err := s.Decode(w, r, input); err != nil || input.IsScam == nil {
			message := "is_scam is required."
			if err != nil {
				message = err.Error()
			}
			s.Response(w, r, s.Error(http.StatusBadRequest, message, "HandleLabelCall", input), http.StatusBadRequest)
			return
		}

		call, ok := s.loadCall(w, r, p, "HandleLabelCall")
		if !ok {
			return
		}
		if call.ScamResult == nil {
			call.ScamResult = &domain.ScamResult{}
		}
		call.ScamResult.IsScam = *input.IsScam
		call.ScamResult.Reason = "labeled by admin"
		call.Labeled = true
		if err := s.Store.SaveCall(r.Context(), call); err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleLabelCall", call.ID), http.StatusInternalServerError)
			return
		}
		s.publish(events.EventCallUpdated, call)

		id, _ := ProfileID(r.Context())
		hlog.FromRequest(r).Info().Str("call", call.ID).Uint("admin", id).Bool("is_scam", *input.IsScam).Msg("call labeled")
		s.Response(w, r, call, http.StatusOK)
	}
}

func (s *Server) HandleDeleteCall() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id := p.ByName("id")
		err := s.Store.DeleteCall(r.Context(), id)
		switch {
		case errors.Is(err, infrastructure.ErrNotFound):
			s.Response(w, r, s.Error(http.StatusNotFound, "Call not found.", "HandleDeleteCall", id), http.StatusNotFound)
			return
		case err != nil:
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleDeleteCall", id), http.StatusInternalServerError)
			return
		}
		s.publish(events.EventCallDeleted, &domain.Call{ID: id})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HandleReprocessCall() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		call, ok := s.loadCall(w, r, p, "HandleReprocessCall")
		if !ok {
			return
		}
		if call.RecordingURL == "" {
			s.Response(w, r, s.Error(http.StatusConflict, "Call has no recording to process.", "HandleReprocessCall", call.ID), http.StatusConflict)
			return
		}
		if err := s.Queue.Enqueue(processing.Job{CallID: call.ID}); err != nil {
			s.Response(w, r, s.Error(http.StatusServiceUnavailable, err.Error(), "HandleReprocessCall", call.ID), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
