// Package httpserver exposes the executor's HTTP surface: the websocket session
// endpoint plus read-only status handlers.
package httpserver

import (
	"net/http"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/coachpo/executor/internal/infra/config"
	"github.com/coachpo/executor/internal/marketdata"
)

const (
	sessionPath  = "/session"
	healthPath   = "/health"
	executorPath = "/executor"

	quotesPath        = "/quotes"
	quoteDetailPrefix = quotesPath + "/"
)

// Market data sources reported by the status endpoint.
const (
	SourceFeed = "feed"
	SourceFlat = "flat"
	SourceNone = "none"
)

type handlerFunc func(http.ResponseWriter, *http.Request)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Sessions() int
}

// Options wires the handler to the running components.
type Options struct {
	Environment config.Environment
	Executor    config.ExecutorConfig
	// MarketDataSource is one of SourceFeed, SourceFlat or SourceNone.
	MarketDataSource string
	// Quotes is nil unless a feed is configured.
	Quotes   *marketdata.QuoteCache
	Sessions http.Handler
	Counter  SessionCounter
}

type httpServer struct {
	opts Options
}

type executorPayload struct {
	Environment           string   `json:"environment"`
	ValidOrderTypes       []string `json:"validOrderTypes"`
	AlwaysFillLimitOrders bool     `json:"alwaysFillLimitOrders"`
	QuantityScale         int32    `json:"quantityScale"`
	MarketData            string   `json:"marketData"`
	DefaultMarketPrice    string   `json:"defaultMarketPrice,omitempty"`
}

// NewHandler creates the executor HTTP handler.
func NewHandler(opts Options) http.Handler {
	server := &httpServer{opts: opts}
	mux := http.NewServeMux()

	if opts.Sessions != nil {
		mux.Handle(sessionPath, opts.Sessions)
	}
	mux.Handle(healthPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.health,
	}))
	mux.Handle(executorPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.executorSettings,
	}))
	mux.Handle(quotesPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.listQuotes,
	}))
	mux.Handle(quoteDetailPrefix, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.getQuote,
	}))

	return withCORS(mux)
}

func (s *httpServer) methodHandlers(handlers map[string]handlerFunc) http.Handler {
	allowed := allowedMethods(handlers)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler(w, r)
			return
		}
		methodNotAllowed(w, allowed...)
	})
}

func allowedMethods(handlers map[string]handlerFunc) []string {
	if len(handlers) == 0 {
		return nil
	}
	allowed := make([]string, 0, len(handlers))
	for method := range handlers {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	return allowed
}

func (s *httpServer) health(w http.ResponseWriter, _ *http.Request) {
	sessions := 0
	if s.opts.Counter != nil {
		sessions = s.opts.Counter.Sessions()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": sessions})
}

func (s *httpServer) executorSettings(w http.ResponseWriter, _ *http.Request) {
	types, err := s.opts.Executor.OrderTypes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.String())
	}
	source := s.opts.MarketDataSource
	if source == "" {
		source = SourceNone
	}
	payload := executorPayload{
		Environment:           string(s.opts.Environment),
		ValidOrderTypes:       names,
		AlwaysFillLimitOrders: s.opts.Executor.AlwaysFillLimitOrders,
		QuantityScale:         s.opts.Executor.QuantityScale,
		MarketData:            source,
	}
	if source == SourceFlat {
		payload.DefaultMarketPrice = s.opts.Executor.DefaultMarketPrice
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *httpServer) listQuotes(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Quotes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"quotes": []marketdata.Quote{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": s.opts.Quotes.Snapshot()})
}

func (s *httpServer) getQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, quoteDetailPrefix))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	if s.opts.Quotes == nil {
		writeError(w, http.StatusNotFound, "no market data feed configured")
		return
	}
	quote, ok := s.opts.Quotes.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "no quote for "+strings.ToUpper(symbol))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}

func withCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
