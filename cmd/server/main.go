// Package main contains the speechbridge server entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"speechbridge/asr"
	"speechbridge/auth"
	"speechbridge/config"
	"speechbridge/di"
	"speechbridge/session"
	"speechbridge/translation"
	"speechbridge/tts"
	"speechbridge/ws"
)

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := session.NewRegistry(session.RegistryConfig{
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSegments:   cfg.Session.MaxSegments,
	}, logger)
	registry.Start(ctx)

	container := buildContainer(cfg)
	resolver := auth.NewResolver(container.Verifier, auth.ResolverConfig{DevBypass: cfg.Auth.DevBypass})
	handler := ws.NewHandler(registry, resolver, container, logger, ws.HandlerConfig{})

	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler(container)).Methods(http.MethodGet)
	router.HandleFunc("/api/languages", languagesHandler(handler)).Methods(http.MethodGet)
	router.Handle("/api/ws", handler)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           loggingMiddleware(router, logger),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	<-shutdown
	logger.Infow("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
		if closeErr := server.Close(); closeErr != nil {
			logger.Errorw("forced close failed", "error", closeErr)
		}
	}

	registry.Stop()
	logger.Infow("server stopped")
}

// buildContainer wires HTTP gateway clients when endpoints are
// configured and falls back to stubs for local development.
func buildContainer(cfg config.Config) *di.Container {
	container := di.NewTestContainer()

	if cfg.STT.BaseURL != "" {
		container.Recognizer = asr.NewHTTPRecognizer(asr.HTTPRecognizerConfig{
			BaseURL: cfg.STT.BaseURL,
			APIKey:  cfg.STT.APIKey,
			Model:   cfg.STT.Model,
			Timeout: cfg.STT.Timeout,
		})
	}
	if cfg.Translate.BaseURL != "" {
		container.Translator = translation.NewHTTPTranslator(translation.HTTPTranslatorConfig{
			BaseURL: cfg.Translate.BaseURL,
			APIKey:  cfg.Translate.APIKey,
			Timeout: cfg.Translate.Timeout,
		})
	}
	if cfg.TTS.BaseURL != "" {
		container.Synthesizer = tts.NewHTTPSynthesizer(tts.HTTPSynthesizerConfig{
			BaseURL: cfg.TTS.BaseURL,
			APIKey:  cfg.TTS.APIKey,
			Timeout: cfg.TTS.Timeout,
		})
	}

	return container
}

func healthHandler(container *di.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status":      "ok",
			"stt":         container.Recognizer.Health(),
			"translation": container.Translator.Health(),
			"tts":         container.Synthesizer.Health(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}
}

func languagesHandler(handler *ws.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"languages": handler.SupportedLanguages(),
		})
	}
}

func loggingMiddleware(next http.Handler, logger *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		logger.Infow("request", "method", r.Method, "path", r.URL.Path, "status", lrw.statusCode, "duration", time.Since(start))
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(statusCode int) {
	lrw.statusCode = statusCode
	lrw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets the websocket upgrade take over the underlying connection.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("SPEECHBRIDGE_DEBUG") != "" {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}
