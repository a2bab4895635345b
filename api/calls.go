package api

import (
	"errors"
	"net/http"
	"strconv"

	"call-filter/domain"
	"call-filter/events"
	"call-filter/infrastructure"
	"call-filter/processing"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
)

// HandleIncomingCall registers the call and tells the provider to record the caller.
func (s *Server) HandleIncomingCall() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleIncomingCall", nil), http.StatusBadRequest)
			return
		}
		sid := r.PostForm.Get("CallSid")
		if sid == "" {
			s.Response(w, r, s.Error(http.StatusBadRequest, "CallSid is required.", "HandleIncomingCall", r.PostForm), http.StatusBadRequest)
			return
		}

		call, err := s.findOrCreateCall(r, sid)
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleIncomingCall", sid), http.StatusInternalServerError)
			return
		}
		call.Status = domain.CallRinging
		if err := s.Store.SaveCall(r.Context(), call); err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleIncomingCall", sid), http.StatusInternalServerError)
			return
		}
		s.publish(events.EventCallUpdated, call)
		hlog.FromRequest(r).Info().Str("call_sid", sid).Str("from", call.From).Msg("incoming call")

		callback, err := s.Table.Reverse("recording_callback")
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleIncomingCall", sid), http.StatusInternalServerError)
			return
		}
		callback = s.absoluteURL(callback)

		maxLength := 30
		greeting := ""
		if s.Config != nil {
			maxLength = s.Config.MaxRecordLength
			greeting = s.Config.Greeting
		}
		resp := &twimlResponse{
			Record: &twimlRecord{
				Action:                        callback,
				Method:                        http.MethodPost,
				MaxLength:                     maxLength,
				PlayBeep:                      true,
				RecordingStatusCallback:       callback,
				RecordingStatusCallbackMethod: http.MethodPost,
			},
		}
		if greeting != "" {
			resp.Say = &twimlSay{Text: greeting}
		}
		s.TwiML(w, r, resp)
	}
}

// HandleRecordingCallback stores recording details. It answers both the
// <Record> action request, which only ends the call, and the recording
// status callback, which starts processing once the file is complete.
func (s *Server) HandleRecordingCallback() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleRecordingCallback", nil), http.StatusBadRequest)
			return
		}
		form := r.PostForm
		sid := form.Get("CallSid")
		recordingURL := form.Get("RecordingUrl")
		if sid == "" || recordingURL == "" {
			s.Response(w, r, s.Error(http.StatusBadRequest, "CallSid and RecordingUrl are required.", "HandleRecordingCallback", form), http.StatusBadRequest)
			return
		}
		var hosts []string
		if s.Config != nil {
			hosts = s.Config.RecordingHosts
		}
		if err := infrastructure.CheckRecordingURL(recordingURL, hosts); err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "HandleRecordingCallback", recordingURL), http.StatusBadRequest)
			return
		}

		call, err := s.findOrCreateCall(r, sid)
		if err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleRecordingCallback", sid), http.StatusInternalServerError)
			return
		}
		call.RecordingURL = recordingURL
		if v := form.Get("RecordingSid"); v != "" {
			call.RecordingSid = v
		}
		if d, err := strconv.Atoi(form.Get("RecordingDuration")); err == nil {
			call.RecordingDuration = d
		}
		if call.Status == domain.CallRinging || call.Status == "" {
			call.Status = domain.CallRecorded
		}
		if err := s.Store.SaveCall(r.Context(), call); err != nil {
			s.Response(w, r, s.Error(http.StatusInternalServerError, err.Error(), "HandleRecordingCallback", sid), http.StatusInternalServerError)
			return
		}
		s.publish(events.EventCallUpdated, call)

		logger := hlog.FromRequest(r).With().Str("call_sid", sid).Str("recording_sid", call.RecordingSid).Logger()
		status := form.Get("RecordingStatus")
		switch status {
		case "":
			logger.Info().Msg("recording finished")
			s.TwiML(w, r, &twimlResponse{
				Say:    &twimlSay{Text: "Thank you. Goodbye."},
				Hangup: &struct{}{},
			})
			return
		case "completed":
		default:
			logger.Info().Str("status", status).Msg("recording not completed, skipping")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := s.Queue.Enqueue(processing.Job{CallID: call.ID}); err != nil {
			logger.Error().Err(err).Msg("could not enqueue recording")
			s.Response(w, r, s.Error(http.StatusServiceUnavailable, err.Error(), "HandleRecordingCallback", sid), http.StatusServiceUnavailable)
			return
		}
		logger.Info().Msg("recording queued for processing")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) findOrCreateCall(r *http.Request, sid string) (*domain.Call, error) {
	call, err := s.Store.GetCallBySid(r.Context(), sid)
	switch {
	case errors.Is(err, infrastructure.ErrNotFound):
		call, err = s.Store.CreateCallBySid(r.Context(), &domain.Call{
			CallSid: &sid,
			Source:  domain.SourceCall,
			From:    r.PostForm.Get("From"),
			To:      r.PostForm.Get("To"),
		})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	if from := r.PostForm.Get("From"); from != "" {
		call.From = from
	}
	if to := r.PostForm.Get("To"); to != "" {
		call.To = to
	}
	return call, nil
}

func (s *Server) publish(t events.EventType, call *domain.Call) {
	if s.Events != nil {
		s.Events.Publish(t, call)
	}
}
