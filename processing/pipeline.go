// Package processing turns recordings into transcripts and scam verdicts.
package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"call-filter/domain"
	"call-filter/events"
	"call-filter/infrastructure"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const failureSaveTimeout = 5 * time.Second

// Job asks for the recording of a call to be processed.
type Job struct {
	CallID string
}

type CallStore interface {
	CreateCall(ctx context.Context, call *domain.Call) error
	GetCall(ctx context.Context, id string) (*domain.Call, error)
	SaveCall(ctx context.Context, call *domain.Call) error
	CreateNotification(ctx context.Context, n *domain.Notification) error
}

type Analyzer interface {
	Analyze(transcript string) domain.ScamResult
}

type Publisher interface {
	Publish(t events.EventType, call *domain.Call)
}

type Pipeline struct {
	Store       CallStore
	Fetcher     infrastructure.RecordingFetcher
	Archive     infrastructure.AudioStore
	Transcriber infrastructure.Transcriber
	Detector    Analyzer
	Events      Publisher
	Notifier    infrastructure.Notifier
}

// Process fetches, transcribes and scores the recording of a call. The call
// ends up processed or failed; either way it is saved and published.
func (p *Pipeline) Process(ctx context.Context, job Job) error {
	call, err := p.Store.GetCall(ctx, job.CallID)
	if err != nil {
		return fmt.Errorf("load call %s: %w", job.CallID, err)
	}
	logger := log.With().Str("call", call.ID).Logger()

	if call.RecordingURL == "" {
		return p.fail(ctx, call, fmt.Errorf("call has no recording"))
	}

	call.Status = domain.CallProcessing
	call.Error = ""
	if err := p.save(ctx, call); err != nil {
		return p.fail(ctx, call, err)
	}

	data, err := p.Fetcher.Fetch(ctx, call.RecordingURL)
	if err != nil {
		return p.fail(ctx, call, err)
	}
	audio, err := infrastructure.InspectWAV(call.ID+".wav", data)
	if err != nil {
		return p.fail(ctx, call, err)
	}

	if err := p.analyze(ctx, call, audio); err != nil {
		return p.fail(ctx, call, err)
	}
	if err := p.save(ctx, call); err != nil {
		return p.fail(ctx, call, err)
	}
	logger.Info().Bool("scam", call.IsSpam()).Float64("score", call.ScamResult.Score).Msg("call processed")

	p.notify(ctx, call)
	return nil
}

// ProcessUpload analyzes an uploaded WAV synchronously and stores it as a call.
// Invalid audio is rejected before anything is stored.
func (p *Pipeline) ProcessUpload(ctx context.Context, filename string, data []byte) (*domain.Call, error) {
	audio, err := infrastructure.InspectWAV(filename, data)
	if err != nil {
		return nil, err
	}

	call := &domain.Call{
		Source:   domain.SourceUpload,
		Status:   domain.CallProcessing,
		Filename: filename,
	}
	if err := p.Store.CreateCall(ctx, call); err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	audio.Name = call.ID + ".wav"

	if err := p.analyze(ctx, call, audio); err != nil {
		return call, p.fail(ctx, call, err)
	}
	if err := p.save(ctx, call); err != nil {
		return call, p.fail(ctx, call, err)
	}
	log.Info().Str("call", call.ID).Str("file", filename).Bool("scam", call.IsSpam()).Msg("upload processed")

	p.notify(ctx, call)
	return call, nil
}

// analyze archives and transcribes the audio, then scores the transcript.
// Short audio is archived and transcribed at the same time; long audio must
// be archived first so the recognizer can read it from storage.
func (p *Pipeline) analyze(ctx context.Context, call *domain.Call, audio *domain.Audio) error {
	var transcript *domain.Transcript

	archive := func(ctx context.Context) error {
		uri, err := p.Archive.Put(ctx, audio.Name, audio.Data)
		if err != nil {
			return fmt.Errorf("archive audio: %w", err)
		}
		call.AudioURI = uri
		return nil
	}
	transcribe := func(ctx context.Context) error {
		t, err := p.Transcriber.Transcribe(ctx, audio)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		transcript = t
		return nil
	}

	if audio.Duration > infrastructure.MaxInlineDuration {
		if err := archive(ctx); err != nil {
			return err
		}
		audio.URI = call.AudioURI
		if err := transcribe(ctx); err != nil {
			return err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return archive(gctx) })
		g.Go(func() error { return transcribe(gctx) })
		if err := g.Wait(); err != nil {
			return err
		}
	}

	result := p.Detector.Analyze(transcript.Text)
	if call.Labeled && call.ScamResult != nil {
		result.IsScam = call.ScamResult.IsScam
	}

	call.Transcript = transcript.Text
	call.Confidence = transcript.Confidence
	call.Phrases = transcript.Phrases
	call.ScamResult = &result
	call.Status = domain.CallProcessed
	return nil
}

// fail marks the call failed. The save runs on a context detached from the
// job's, which may already be done.
func (p *Pipeline) fail(ctx context.Context, call *domain.Call, cause error) error {
	log.Error().Err(cause).Str("call", call.ID).Msg("processing failed")
	call.Status = domain.CallFailed
	call.Error = cause.Error()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSaveTimeout)
	defer cancel()
	if err := p.save(ctx, call); err != nil {
		log.Error().Err(err).Str("call", call.ID).Msg("could not record failure")
	}
	return cause
}

func (p *Pipeline) save(ctx context.Context, call *domain.Call) error {
	if err := p.Store.SaveCall(ctx, call); err != nil {
		return fmt.Errorf("save call %s: %w", call.ID, err)
	}
	if p.Events != nil {
		p.Events.Publish(events.EventCallUpdated, call)
	}
	return nil
}

// notify records and forwards a notification for calls flagged as scams.
// Failures are logged; the verdict itself is already stored.
func (p *Pipeline) notify(ctx context.Context, call *domain.Call) {
	if !call.IsSpam() {
		return
	}
	content, _ := json.Marshal(map[string]interface{}{
		"from":       call.From,
		"score":      call.ScamResult.Score,
		"categories": call.ScamResult.Categories,
		"reason":     call.ScamResult.Reason,
	})
	n := &domain.Notification{
		CallID:  call.ID,
		Process: "scam_detected",
		Content: string(content),
	}
	if err := p.Store.CreateNotification(ctx, n); err != nil {
		log.Warn().Err(err).Str("call", call.ID).Msg("could not store notification")
		return
	}
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Send(ctx, n); err != nil {
		log.Warn().Err(err).Str("call", call.ID).Msg("could not send notification")
	}
}
