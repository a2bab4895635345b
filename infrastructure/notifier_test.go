package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"call-filter/domain"
)

func TestNotifierSend(t *testing.T) {
	var got domain.Notification
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publish" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := &HTTPNotifier{Client: srv.Client(), Endpoint: srv.URL, Token: "tok"}
	err := n.Send(context.Background(), &domain.Notification{CallID: "c1", Process: "scam_detected"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.CallID != "c1" || auth != "Bearer tok" {
		t.Errorf("unexpected request %+v auth=%q", got, auth)
	}

	if err := (&HTTPNotifier{}).Send(context.Background(), &got); err != nil {
		t.Errorf("expected no-op without endpoint, got %v", err)
	}
}
