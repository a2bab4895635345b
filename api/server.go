package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-filter/events"
	"call-filter/infrastructure"
	"call-filter/processing"
	"call-filter/routing"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// JobQueue accepts recordings for background processing.
type JobQueue interface {
	Enqueue(job processing.Job) error
}

type Server struct {
	Config   *infrastructure.Config
	Store    *infrastructure.Store
	Pipeline *processing.Pipeline
	Queue    JobQueue
	Events   *events.Broker

	Router *httprouter.Router
	Table  *routing.Table

	handler http.Handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type Error struct {
	Code     int
	Message  string
	Function string
	Input    string
}

// Init builds the route table, mounts it and wraps the router in middleware.
// A table with duplicate routes is rejected here.
func Init(cfg *infrastructure.Config, store *infrastructure.Store, pipeline *processing.Pipeline, queue JobQueue, broker *events.Broker) (*Server, error) {
	server := &Server{
		Config:   cfg,
		Store:    store,
		Pipeline: pipeline,
		Queue:    queue,
		Events:   broker,
	}

	server.Table = server.Routes()

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(server.notFound)
	router.MethodNotAllowed = http.HandlerFunc(server.methodNotAllowed)
	router.PanicHandler = server.panicHandler
	if err := server.Table.Mount(router); err != nil {
		return nil, fmt.Errorf("mount routes: %w", err)
	}
	server.Router = router
	server.handler = server.middleware(router)

	return server, nil
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.Response(w, r, Error{Code: 404, Message: "Path not found.", Function: "ServeHTTP", Input: r.URL.Path}, 404)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.Response(w, r, Error{Code: 405, Message: "Method not allowed.", Function: "ServeHTTP", Input: r.Method + " " + r.URL.Path}, 405)
}

func (s *Server) panicHandler(w http.ResponseWriter, r *http.Request, v interface{}) {
	log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
	s.Response(w, r, Error{Code: 500, Message: "Internal server error.", Function: "ServeHTTP", Input: r.URL.Path}, 500)
}

func (s *Server) Error(code int, message string, function string, input interface{}) Error {
	inputJSON, _ := json.MarshalIndent(input, "", "    ")
	return Error{
		Code:     code,
		Message:  message,
		Function: function,
		Input:    string(inputJSON),
	}
}

func (s *Server) Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) Response(w http.ResponseWriter, r *http.Request, i interface{}, code int) {
	if i != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(code)
	if i != nil {
		err := json.NewEncoder(w).Encode(i)
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("couldn't encode response data")
		}
	}
}

func (s *Server) AwaitForShutdown(ctx context.Context, server *http.Server, serverDone chan error, shutdownApplication context.CancelFunc) {
	select {
	case <-ctx.Done():
		s.ShutdownServerGracefully(server)
	case serverError := <-serverDone:
		if serverError != nil {
			log.Error().Err(serverError).Msg("Server returned with error")
		}
		shutdownApplication()
	}
}

func (s *Server) ShutdownServerGracefully(server *http.Server) {
	timeout := 5 * time.Second
	if s.Config != nil && s.Config.ShutdownTimeout > 0 {
		timeout = s.Config.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.Events != nil {
		s.Events.Close()
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Could not shutdown server gracefully")
	}
}

func (s *Server) HandleShutdownSignals(cancel context.CancelFunc) {
	go func() {
		log.Info().Msg("Listening signals...")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		log.Info().Msg("Shutting down")
		cancel()
	}()
}
