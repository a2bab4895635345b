package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"call-filter/detection"
	"call-filter/domain"
	"call-filter/events"
	"call-filter/infrastructure"
	"call-filter/internal/wavtest"
	"call-filter/processing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []processing.Job
	err  error
}

func (q *fakeQueue) Enqueue(job processing.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return wavtest.Tone(8000, 1), nil
}

type memArchive struct{}

func (memArchive) Put(ctx context.Context, name string, data []byte) (string, error) {
	return "mem://" + name, nil
}

type scriptedTranscriber struct {
	text string
}

func (s scriptedTranscriber) Transcribe(ctx context.Context, audio *domain.Audio) (*domain.Transcript, error) {
	return &domain.Transcript{
		Text:       s.text,
		Confidence: 0.92,
		Phrases:    []*domain.Phrase{{Transcript: s.text, Confidence: 0.92}},
	}, nil
}

type testEnv struct {
	Server *Server
	Store  *infrastructure.Store
	Queue  *fakeQueue
	Events *events.Broker
	Config *infrastructure.Config
}

const scamTranscript = "This is the IRS. A warrant has been issued for your arrest. Pay immediately with a gift card."

func testSetup(t *testing.T) *testEnv {
	t.Helper()

	path := fmt.Sprintf("%s/api_test_%d.db?_pragma=busy_timeout(5000)", t.TempDir(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := infrastructure.CreateTables(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	store := infrastructure.NewStore(db)

	cfg := &infrastructure.Config{
		AccessKey:       "test-access-key",
		CORSOrigins:     []string{"http://localhost:3000"},
		Greeting:        "Please state the reason for your call.",
		MaxRecordLength: 20,
		MaxUploadSize:   1 << 20,
		RecordingHosts:  []string{"api.example.com"},
	}
	broker := events.NewBroker(16)
	queue := &fakeQueue{}
	pipeline := &processing.Pipeline{
		Store:       store,
		Fetcher:     staticFetcher{},
		Archive:     memArchive{},
		Transcriber: scriptedTranscriber{text: scamTranscript},
		Detector:    detection.New(detection.DefaultRules()),
		Events:      broker,
	}

	server, err := Init(cfg, store, pipeline, queue, broker)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &testEnv{Server: server, Store: store, Queue: queue, Events: broker, Config: cfg}
}

func (e *testEnv) do(method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.Server.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	return e.do(http.MethodPost, path, strings.NewReader(form.Encode()), header)
}

func (e *testEnv) createCall(t *testing.T, call *domain.Call) *domain.Call {
	t.Helper()
	if err := e.Store.CreateCall(context.Background(), call); err != nil {
		t.Fatalf("CreateCall: %v", err)
	}
	return call
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, w.Body.String())
	}
	return e
}
