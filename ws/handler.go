// Package ws implements the session protocol: a WebSocket dispatcher
// binding client commands to the session registry, the sentence
// accumulator and the transcription/translation/synthesis gateways.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"speechbridge/auth"
	"speechbridge/di"
	"speechbridge/session"
)

// defaultSupportedLanguages is the language set accepted for session
// configuration when none is supplied.
var defaultSupportedLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "pl", "ru", "tr",
	"ja", "ko", "zh", "ar", "hi", "vi",
}

// HandlerConfig tunes the protocol handler.
type HandlerConfig struct {
	// SupportedLanguages overrides the default accepted language set.
	SupportedLanguages []string
}

// Handler upgrades connections and runs the per-connection protocol.
type Handler struct {
	registry  *session.Registry
	resolver  *auth.Resolver
	deps      *di.Container
	logger    *zap.SugaredLogger
	supported map[string]bool
	upgrader  websocket.Upgrader
}

// NewHandler creates a protocol handler over the given registry, identity
// resolver and gateway container.
func NewHandler(registry *session.Registry, resolver *auth.Resolver, deps *di.Container, logger *zap.SugaredLogger, config HandlerConfig) *Handler {
	langs := config.SupportedLanguages
	if len(langs) == 0 {
		langs = defaultSupportedLanguages
	}
	supported := make(map[string]bool, len(langs))
	for _, lang := range langs {
		supported[lang] = true
	}

	return &Handler{
		registry:  registry,
		resolver:  resolver,
		deps:      deps,
		logger:    logger,
		supported: supported,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SupportedLanguages returns the accepted language codes.
func (h *Handler) SupportedLanguages() []string {
	out := make([]string, 0, len(h.supported))
	for lang := range h.supported {
		out = append(out, lang)
	}
	return out
}

// ServeHTTP upgrades the request and runs the connection until disconnect.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, resolveErr := h.resolver.Resolve(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("failed to upgrade connection", "error", err)
		return
	}

	if resolveErr != nil {
		h.logger.Warnw("rejected connection with bad credential", "error", resolveErr)
		closeWithCode(conn, CloseUnauthorized, "unauthorized")
		return
	}

	c := newConnection(h, conn, identity)
	defer c.cleanup()

	h.logger.Infow("connection established", "identity", identity.UserID, "tier", identity.Tier, "guest", identity.Guest)
	c.readLoop()
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
