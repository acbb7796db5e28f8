// Package server implements the two websocket services clients talk to.
//
// Each connection carries plain-text commands ("CR", "PR", "NA", "PD") from
// the client and JSON frames back. A Responder turns one command into the
// reply variants; the Service owns the socket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/luki/tempomatic/internal/config"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/store"
)

// Service is a websocket endpoint backed by a Responder.
type Service struct {
	name         string
	responder    Responder
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewService creates the endpoint. name only appears in logs.
func NewService(name string, r Responder, cfg config.ServerConfig, logger *slog.Logger) *Service {
	s := &Service{
		name:         name,
		responder:    r,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger.With("service", name),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP upgrades the request and serves commands until the client
// goes away.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	log := s.logger.With("conn", uuid.NewString(), "remote", r.RemoteAddr)
	log.Info("client connected")
	defer log.Info("client disconnected")

	ctx := r.Context()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("read failed", "err", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := s.handle(ctx, conn, log, string(data)); err != nil {
			log.Warn("write failed", "err", err)
			return
		}
	}
}

// handle answers one command. Only write errors are returned; everything
// else is logged and the connection stays open.
func (s *Service) handle(ctx context.Context, conn *websocket.Conn, log *slog.Logger, text string) error {
	cmd, err := message.ParseCommand(text)
	if err != nil {
		log.Info("ignoring message", "err", err)
		return nil
	}

	msgs, err := s.responder.Respond(ctx, cmd)
	switch {
	case errors.Is(err, store.ErrEmpty):
		log.Info("no stored readings", "command", cmd)
		return nil
	case errors.Is(err, ErrUnsupported):
		log.Info("ignoring command", "command", cmd)
		return nil
	case err != nil:
		log.Error("command failed", "command", cmd, "err", err)
		return nil
	}
	if len(msgs) == 0 {
		return nil
	}

	frame, err := message.Encode(msgs...)
	if err != nil {
		log.Error("encode reply", "command", cmd, "err", err)
		return nil
	}
	if s.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return err
	}
	log.Debug("reply sent", "command", cmd, "fields", message.Keys(frame))
	return nil
}

// Pinger reports whether a backing dependency is healthy.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter mounts svc at path next to a /health probe.
func NewRouter(path string, svc http.Handler, health Pinger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler(health)).Methods(http.MethodGet)
	r.Handle(path, svc)
	return r
}

func healthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "unhealthy: %v\n", err)
				return
			}
		}
		fmt.Fprintln(w, "ok")
	}
}

// Wrap adds panic recovery and access logging.
func Wrap(h http.Handler, logger *slog.Logger) http.Handler {
	access := handlers.CombinedLoggingHandler(&logWriter{logger: logger}, h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(&recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)(access)
}

// logWriter feeds access log lines into slog.
type logWriter struct {
	logger *slog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.Info("http", "access", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l *recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("handler panic", "err", fmt.Sprint(v...))
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, cfg config.ServerConfig, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down", "addr", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
