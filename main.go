package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"call-filter/api"
	"call-filter/detection"
	"call-filter/domain"
	"call-filter/events"
	"call-filter/infrastructure"
	"call-filter/processing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := infrastructure.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, time.Minute)
	db, err := infrastructure.Connect(connectCtx, cfg)
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to DB")
	}
	if err := infrastructure.CreateTables(db); err != nil {
		log.Fatal().Err(err).Msg("could not create tables")
	}
	store := infrastructure.NewStore(db)

	if err := api.EnsureAdmin(ctx, store, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("could not create admin profile")
	}

	rules := detection.DefaultRules()
	if cfg.DetectionRulesFile != "" {
		rules, err = detection.LoadRules(cfg.DetectionRulesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load detection rules")
		}
	}

	archive, err := infrastructure.NewAudioStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create audio store")
	}

	var transcriber infrastructure.Transcriber = unavailableTranscriber{}
	if cfg.SpeechEnabled {
		google, err := infrastructure.NewGoogleTranscriber(ctx, cfg.SpeechLanguage)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create speech client")
		}
		defer google.Close()
		transcriber = google
	}

	broker := events.NewBroker(64)
	pipeline := &processing.Pipeline{
		Store:       store,
		Fetcher:     infrastructure.NewRecordingFetcher(cfg),
		Archive:     archive,
		Transcriber: transcriber,
		Detector:    detection.New(rules),
		Events:      broker,
		Notifier:    infrastructure.NewNotifier(cfg),
	}

	// Workers outlive the request context so queued recordings finish on shutdown.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	queue := processing.NewQueue(pipeline, cfg.Workers, cfg.QueueBuffer, cfg.JobTimeout)
	queue.Start(workerCtx)

	server, err := api.Init(cfg, store, pipeline, queue, broker)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build routes")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.HandleShutdownSignals(cancel)

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		err := httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		serverDone <- err
	}()

	server.AwaitForShutdown(ctx, httpServer, serverDone, cancel)
	queue.Stop()
	log.Info().Msg("bye")
}

func setupLogging(cfg *infrastructure.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// unavailableTranscriber is used when speech recognition is switched off;
// recordings are still archived and fail with a clear error.
type unavailableTranscriber struct{}

func (unavailableTranscriber) Transcribe(ctx context.Context, audio *domain.Audio) (*domain.Transcript, error) {
	return nil, fmt.Errorf("speech recognition is disabled")
}
