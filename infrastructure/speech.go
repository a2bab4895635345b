package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"call-filter/domain"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/rs/zerolog/log"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
)

// Recordings longer than this must be referenced by a gs:// URI.
const MaxInlineDuration = time.Minute

var ErrAudioTooLong = errors.New("audio too long for inline recognition")

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *domain.Audio) (*domain.Transcript, error)
}

type GoogleTranscriber struct {
	client   *speech.Client
	language string
}

func NewGoogleTranscriber(ctx context.Context, language string) (*GoogleTranscriber, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech.NewClient: %w", err)
	}
	return &GoogleTranscriber{client: client, language: language}, nil
}

func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

func (g *GoogleTranscriber) config(audio *domain.Audio) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(audio.SampleRate),
		LanguageCode:               g.language,
		AudioChannelCount:          int32(audio.Channels),
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		Model:                      "phone_call",
	}
}

// Transcribe recognizes short audio inline. Longer audio goes through
// LongRunningRecognize and needs audio.URI to point at a gs:// object.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio *domain.Audio) (*domain.Transcript, error) {
	log.Debug().Str("audio", audio.Name).Dur("duration", audio.Duration).Msg("sending audio to Google STT")

	if audio.Duration <= MaxInlineDuration {
		resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
			Config: g.config(audio),
			Audio: &speechpb.RecognitionAudio{
				AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("recognize: %w", err)
		}
		return CreateTranscript(resp.GetResults()), nil
	}

	if !strings.HasPrefix(audio.URI, "gs://") {
		return nil, fmt.Errorf("%w: %s (%s)", ErrAudioTooLong, audio.Name, audio.Duration)
	}
	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: g.config(audio),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: audio.URI},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("long running recognize: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for recognition: %w", err)
	}
	return CreateTranscript(resp.GetResults()), nil
}

// CreateTranscript keeps the most confident alternative of every result and
// orders the phrases by the time of their first word.
func CreateTranscript(results []*speechpb.SpeechRecognitionResult) *domain.Transcript {
	transcript := &domain.Transcript{Phrases: []*domain.Phrase{}}

	for _, result := range results {
		var best *speechpb.SpeechRecognitionAlternative
		for _, alt := range result.GetAlternatives() {
			if best == nil || alt.GetConfidence() > best.GetConfidence() {
				best = alt
			}
		}
		if best == nil || strings.TrimSpace(best.GetTranscript()) == "" {
			continue
		}

		phrase := &domain.Phrase{
			Transcript: strings.TrimSpace(best.GetTranscript()),
			Confidence: float64(best.GetConfidence()),
		}
		for _, w := range best.GetWords() {
			phrase.Words = append(phrase.Words, domain.Word{
				Word:  w.GetWord(),
				Start: w.GetStartTime().AsDuration().Seconds(),
				End:   w.GetEndTime().AsDuration().Seconds(),
			})
		}
		sort.Slice(phrase.Words, func(i, j int) bool {
			return phrase.Words[i].Start < phrase.Words[j].Start
		})
		if len(phrase.Words) > 0 {
			phrase.Time = phrase.Words[0].Start
		}
		transcript.Phrases = append(transcript.Phrases, phrase)
	}

	sort.SliceStable(transcript.Phrases, func(i, j int) bool {
		return transcript.Phrases[i].Time < transcript.Phrases[j].Time
	})

	texts := make([]string, 0, len(transcript.Phrases))
	total := 0.0
	for _, p := range transcript.Phrases {
		texts = append(texts, p.Transcript)
		total += p.Confidence
	}
	transcript.Text = strings.Join(texts, " ")
	if len(transcript.Phrases) > 0 {
		transcript.Confidence = total / float64(len(transcript.Phrases))
	}
	return transcript
}
