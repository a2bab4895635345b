package api

import (
	"encoding/xml"
	"net/http"

	"github.com/rs/zerolog/log"
)

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     *twimlSay    `xml:"Say,omitempty"`
	Record  *twimlRecord `xml:"Record,omitempty"`
	Hangup  *struct{}    `xml:"Hangup,omitempty"`
}

type twimlSay struct {
	Text string `xml:",chardata"`
}

type twimlRecord struct {
	Action                        string `xml:"action,attr"`
	Method                        string `xml:"method,attr"`
	MaxLength                     int    `xml:"maxLength,attr"`
	PlayBeep                      bool   `xml:"playBeep,attr"`
	RecordingStatusCallback       string `xml:"recordingStatusCallback,attr"`
	RecordingStatusCallbackMethod string `xml:"recordingStatusCallbackMethod,attr"`
}

func (s *Server) TwiML(w http.ResponseWriter, r *http.Request, response *twimlResponse) {
	out, err := xml.Marshal(response)
	if err != nil {
		log.Error().Err(err).Msg("couldn't encode TwiML")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(out)
}
