package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrUntrustedRecordingURL = errors.New("recording URL is not on a trusted host")

// CheckRecordingURL accepts http(s) URLs whose host is one of hosts or a
// subdomain of one.
func CheckRecordingURL(raw string, hosts []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUntrustedRecordingURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w: scheme %q", ErrUntrustedRecordingURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && (host == h || strings.HasSuffix(host, "."+h)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUntrustedRecordingURL, host)
}

// RecordingFetcher downloads a call recording.
type RecordingFetcher interface {
	Fetch(ctx context.Context, recordingURL string) ([]byte, error)
}

// HTTPRecordingFetcher downloads recordings from the telephony provider,
// authenticating with the account SID and auth token when both are set.
// Only URLs on AllowedHosts are fetched.
type HTTPRecordingFetcher struct {
	Client       *http.Client
	AccountSID   string
	AuthToken    string
	MaxSize      int64
	AllowedHosts []string
}

func NewRecordingFetcher(cfg *Config) *HTTPRecordingFetcher {
	return &HTTPRecordingFetcher{
		Client:       &http.Client{Timeout: 2 * time.Minute},
		AccountSID:   cfg.AccountSID,
		AuthToken:    cfg.AuthToken,
		MaxSize:      cfg.MaxUploadSize,
		AllowedHosts: cfg.RecordingHosts,
	}
}

// Fetch asks for the WAV rendition of the recording.
func (f *HTTPRecordingFetcher) Fetch(ctx context.Context, recordingURL string) ([]byte, error) {
	if err := CheckRecordingURL(recordingURL, f.AllowedHosts); err != nil {
		return nil, err
	}
	u := recordingURL
	if !strings.HasSuffix(u, ".wav") {
		u += ".wav"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.AccountSID != "" && f.AuthToken != "" {
		req.SetBasicAuth(f.AccountSID, f.AuthToken)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch recording %s: unexpected status %s", u, resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.MaxSize > 0 {
		body = io.LimitReader(resp.Body, f.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	if f.MaxSize > 0 && int64(len(data)) > f.MaxSize {
		return nil, fmt.Errorf("recording %s exceeds %d bytes", u, f.MaxSize)
	}
	return data, nil
}
