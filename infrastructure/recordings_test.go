package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecordingFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC1" || pass != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/Recordings/RE1.wav" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	f := &HTTPRecordingFetcher{Client: srv.Client(), AccountSID: "AC1", AuthToken: "token", MaxSize: 1024, AllowedHosts: []string{"127.0.0.1"}}

	data, err := f.Fetch(context.Background(), srv.URL+"/Recordings/RE1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "RIFFdata" {
		t.Errorf("unexpected body %q", data)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/Recordings/missing"); err == nil {
		t.Error("expected error for 404")
	}

	f.MaxSize = 4
	if _, err := f.Fetch(context.Background(), srv.URL+"/Recordings/RE1.wav"); err == nil {
		t.Error("expected error for oversized recording")
	}
}

func TestRecordingFetcherRefusesUntrustedHosts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	f := &HTTPRecordingFetcher{Client: srv.Client(), AccountSID: "AC1", AuthToken: "token", AllowedHosts: []string{"api.twilio.com"}}

	// httptest listens on 127.0.0.1, which is not a provider host.
	if _, err := f.Fetch(context.Background(), srv.URL+"/x"); !errors.Is(err, ErrUntrustedRecordingURL) {
		t.Fatalf("expected ErrUntrustedRecordingURL, got %v", err)
	}
	if hits != 0 {
		t.Errorf("untrusted host was contacted %d times", hits)
	}
}

func TestCheckRecordingURL(t *testing.T) {
	hosts := []string{"api.twilio.com"}
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE1", true},
		{"https://API.Twilio.com/Recordings/RE1", true},
		{"https://edge.api.twilio.com/Recordings/RE1", true},
		{"https://attacker.example.com/x", false},
		{"https://api.twilio.com.attacker.example.com/x", false},
		{"https://evilapi.twilio.com/x", false},
		{"file:///etc/passwd", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		err := CheckRecordingURL(tt.url, hosts)
		if (err == nil) != tt.ok {
			t.Errorf("%s: expected ok=%v, got %v", tt.url, tt.ok, err)
		}
	}
}
