// Package handlers provides the websocket quote stream.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/voltlab/volguard/internal/domain"
)

const pushInterval = 5 * time.Second

// Handler streams quotes over a websocket.
type Handler struct {
	provider domain.Provider
	log      zerolog.Logger
}

// NewHandler creates a stream handler. The provider should be the cached
// one so a busy stream does not hammer upstreams.
func NewHandler(provider domain.Provider, log zerolog.Logger) *Handler {
	return &Handler{
		provider: provider,
		log:      log.With().Str("handler", "stream").Logger(),
	}
}

// RegisterRoutes mounts the stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.HandleStream)
}

type subscribeMessage struct {
	Symbols []string `json:"symbols"`
}

// HandleStream handles GET /api/stream. The client opens the socket and
// sends {"symbols":["SPY",...]}; the server pushes a quotes frame every
// five seconds until the client disconnects or the request context ends.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()

	var sub subscribeMessage
	if err := wsjson.Read(ctx, conn, &sub); err != nil {
		h.log.Debug().Err(err).Msg("Stream subscription read failed")
		return
	}
	if len(sub.Symbols) == 0 {
		conn.Close(websocket.StatusPolicyViolation, "no symbols requested")
		return
	}

	h.log.Info().Strs("symbols", sub.Symbols).Msg("Quote stream opened")

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		if err := h.push(ctx, conn, sub.Symbols); err != nil {
			h.log.Debug().Err(err).Msg("Quote stream closed")
			return
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "context ended")
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) push(ctx context.Context, conn *websocket.Conn, symbols []string) error {
	quotes := make(map[string]*domain.Quote, len(symbols))
	for _, symbol := range symbols {
		quote, err := h.provider.GetQuote(ctx, symbol, domain.MarketUS)
		if err != nil {
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("Stream quote failed")
			continue
		}
		quotes[strings.ToUpper(symbol)] = quote
	}

	return wsjson.Write(ctx, conn, map[string]interface{}{
		"type": "quotes",
		"data": quotes,
	})
}
