package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"call-filter/detection"
	"call-filter/domain"
	"call-filter/events"
	"call-filter/infrastructure"
	"call-filter/internal/wavtest"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *infrastructure.Store {
	t.Helper()
	path := fmt.Sprintf("%s/processing_test_%d.db", t.TempDir(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := infrastructure.CreateTables(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return infrastructure.NewStore(db)
}

type fakeFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

type fakeArchive struct {
	mu    sync.Mutex
	names []string
}

func (a *fakeArchive) Put(ctx context.Context, name string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = append(a.names, name)
	return "mem://" + name, nil
}

type fakeTranscriber struct {
	text string
	err  error
	uris []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio *domain.Audio) (*domain.Transcript, error) {
	f.uris = append(f.uris, audio.URI)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Transcript{
		Text:       f.text,
		Confidence: 0.9,
		Phrases:    []*domain.Phrase{{Transcript: f.text, Confidence: 0.9}},
	}, nil
}

type fakeNotifier struct {
	sent []*domain.Notification
}

func (n *fakeNotifier) Send(ctx context.Context, notification *domain.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

type testPipeline struct {
	*Pipeline
	store       *infrastructure.Store
	fetcher     *fakeFetcher
	archive     *fakeArchive
	transcriber *fakeTranscriber
	notifier    *fakeNotifier
	broker      *events.Broker
}

func newTestPipeline(t *testing.T, text string) *testPipeline {
	tp := &testPipeline{
		store:       testStore(t),
		fetcher:     &fakeFetcher{data: wavtest.Tone(8000, 1)},
		archive:     &fakeArchive{},
		transcriber: &fakeTranscriber{text: text},
		notifier:    &fakeNotifier{},
		broker:      events.NewBroker(32),
	}
	tp.Pipeline = &Pipeline{
		Store:       tp.store,
		Fetcher:     tp.fetcher,
		Archive:     tp.archive,
		Transcriber: tp.transcriber,
		Detector:    detection.New(detection.DefaultRules()),
		Events:      tp.broker,
		Notifier:    tp.notifier,
	}
	return tp
}

func (tp *testPipeline) recordedCall(t *testing.T) *domain.Call {
	t.Helper()
	sid := "CA42"
	call := &domain.Call{
		CallSid:      &sid,
		Source:       domain.SourceCall,
		From:         "+15550100",
		Status:       domain.CallRecorded,
		RecordingURL: "https://api.example.com/Recordings/RE42",
	}
	if err := tp.store.CreateCall(context.Background(), call); err != nil {
		t.Fatalf("CreateCall: %v", err)
	}
	return call
}

func TestProcessFlagsScamCall(t *testing.T) {
	tp := newTestPipeline(t, "This is the IRS. There is a warrant for your arrest, pay with a gift card immediately.")
	sub := tp.broker.Subscribe()
	defer tp.broker.Unsubscribe(sub)
	call := tp.recordedCall(t)

	if err := tp.Process(context.Background(), Job{CallID: call.ID}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := tp.store.GetCall(context.Background(), call.ID)
	if got.Status != domain.CallProcessed {
		t.Errorf("expected processed, got %s (%s)", got.Status, got.Error)
	}
	if !got.IsSpam() {
		t.Errorf("expected call to be flagged, got %+v", got.ScamResult)
	}
	if got.AudioURI != "mem://"+call.ID+".wav" {
		t.Errorf("unexpected audio uri %q", got.AudioURI)
	}
	if len(tp.fetcher.urls) != 1 || tp.fetcher.urls[0] != call.RecordingURL {
		t.Errorf("unexpected fetches %v", tp.fetcher.urls)
	}

	notifications, _ := tp.store.ListNotifications(context.Background(), call.ID)
	if len(notifications) != 1 || len(tp.notifier.sent) != 1 {
		t.Errorf("expected one stored and sent notification, got %d/%d", len(notifications), len(tp.notifier.sent))
	}

	var statuses []domain.CallStatus
	for len(sub.Events) > 0 {
		statuses = append(statuses, (<-sub.Events).Call.Status)
	}
	if len(statuses) != 2 || statuses[1] != domain.CallProcessed {
		t.Errorf("expected processing then processed events, got %v", statuses)
	}
}

func TestProcessBenignCall(t *testing.T) {
	tp := newTestPipeline(t, "Hi, it's Sam from the dentist confirming your appointment on Tuesday.")
	call := tp.recordedCall(t)

	if err := tp.Process(context.Background(), Job{CallID: call.ID}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := tp.store.GetCall(context.Background(), call.ID)
	if got.IsSpam() {
		t.Errorf("expected benign call, got %+v", got.ScamResult)
	}
	if len(tp.notifier.sent) != 0 {
		t.Error("expected no notification for benign call")
	}
}

func TestProcessKeepsManualLabel(t *testing.T) {
	tp := newTestPipeline(t, "your car warranty is about to expire, press one")
	call := tp.recordedCall(t)
	call.Labeled = true
	call.ScamResult = &domain.ScamResult{IsScam: false}
	tp.store.SaveCall(context.Background(), call)

	if err := tp.Process(context.Background(), Job{CallID: call.ID}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := tp.store.GetCall(context.Background(), call.ID)
	if got.IsSpam() {
		t.Error("expected manual label to win over detector")
	}
	if len(got.ScamResult.Matches) == 0 {
		t.Error("expected detector matches to still be recorded")
	}
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tp *testPipeline)
	}{
		{"fetch error", func(tp *testPipeline) { tp.fetcher.err = errors.New("connection reset") }},
		{"not a wav", func(tp *testPipeline) { tp.fetcher.data = []byte("<html>nope</html>") }},
		{"transcription error", func(tp *testPipeline) { tp.transcriber.err = errors.New("quota exceeded") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newTestPipeline(t, "hello")
			tt.setup(tp)
			call := tp.recordedCall(t)

			if err := tp.Process(context.Background(), Job{CallID: call.ID}); err == nil {
				t.Fatal("expected error")
			}
			got, _ := tp.store.GetCall(context.Background(), call.ID)
			if got.Status != domain.CallFailed || got.Error == "" {
				t.Errorf("expected failed status with error, got %s %q", got.Status, got.Error)
			}
		})
	}
}

func TestProcessUnknownCall(t *testing.T) {
	tp := newTestPipeline(t, "hello")
	if err := tp.Process(context.Background(), Job{CallID: "missing"}); !errors.Is(err, infrastructure.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessLongRecordingArchivesFirst(t *testing.T) {
	tp := newTestPipeline(t, "hello there")
	tp.fetcher.data = wavtest.Tone(8000, 61)
	call := tp.recordedCall(t)

	if err := tp.Process(context.Background(), Job{CallID: call.ID}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(tp.transcriber.uris) != 1 || tp.transcriber.uris[0] != "mem://"+call.ID+".wav" {
		t.Errorf("expected transcriber to receive archived uri, got %v", tp.transcriber.uris)
	}
}

func TestProcessUpload(t *testing.T) {
	tp := newTestPipeline(t, "congratulations you have won a free cruise, verify your account with your password")

	call, err := tp.ProcessUpload(context.Background(), "voicemail.wav", wavtest.Tone(16000, 1))
	if err != nil {
		t.Fatalf("ProcessUpload: %v", err)
	}
	if call.Source != domain.SourceUpload || call.Filename != "voicemail.wav" {
		t.Errorf("unexpected call %+v", call)
	}
	if !call.IsSpam() {
		t.Errorf("expected upload to be flagged, got %+v", call.ScamResult)
	}

	if _, err := tp.ProcessUpload(context.Background(), "notes.txt", []byte("hello")); !errors.Is(err, infrastructure.ErrInvalidWAV) {
		t.Errorf("expected ErrInvalidWAV, got %v", err)
	}
}

type blockingTranscriber struct{}

func (blockingTranscriber) Transcribe(ctx context.Context, audio *domain.Audio) (*domain.Transcript, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTimedOutJobEndsFailed(t *testing.T) {
	tp := newTestPipeline(t, "")
	tp.Pipeline.Transcriber = blockingTranscriber{}
	call := tp.recordedCall(t)

	q := NewQueue(tp.Pipeline, 1, 1, 200*time.Millisecond)
	q.Start(context.Background())
	if err := q.Enqueue(Job{CallID: call.ID}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Stop()

	got, err := tp.store.GetCall(context.Background(), call.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if got.Status != domain.CallFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !strings.Contains(got.Error, context.DeadlineExceeded.Error()) {
		t.Errorf("expected the timeout in the error, got %q", got.Error)
	}
}

func TestPublishedEventsAreSnapshots(t *testing.T) {
	tp := newTestPipeline(t, "This is the IRS, pay with a gift card.")
	sub := tp.broker.Subscribe()

	var statuses []domain.CallStatus
	encoded := make(chan struct{})
	go func() {
		defer close(encoded)
		for event := range sub.Events {
			if _, err := json.Marshal(event); err != nil {
				t.Errorf("Marshal: %v", err)
			}
			statuses = append(statuses, event.Call.Status)
		}
	}()

	for i := 0; i < 20; i++ {
		call := &domain.Call{
			Source:       domain.SourceCall,
			Status:       domain.CallRecorded,
			RecordingURL: fmt.Sprintf("https://api.example.com/Recordings/RE%d", i),
		}
		if err := tp.store.CreateCall(context.Background(), call); err != nil {
			t.Fatalf("CreateCall: %v", err)
		}
		if err := tp.Process(context.Background(), Job{CallID: call.ID}); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	tp.broker.Unsubscribe(sub)
	<-encoded

	if len(statuses) < 2 || statuses[0] != domain.CallProcessing || statuses[1] != domain.CallProcessed {
		t.Errorf("events do not reflect the state at publish time: %v", statuses)
	}
}
