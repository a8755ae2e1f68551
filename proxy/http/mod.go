// Package http implements the read-only HTTP proxy of the ledger. It serves
// the public fields of the auctions and the metrics of the process.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/rs/zerolog"
	"go.dedis.ch/sealbid"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0
)

// Option is the type of options to create the proxy.
type Option func(*HTTP)

// WithTracer sets the tracer of the requests.
func WithTracer(tracer opentracing.Tracer) Option {
	return func(h *HTTP) {
		h.tracer = tracer
	}
}

// WithLogger sets the logger of the requests.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTP) {
		h.logger = logger
	}
}

// HTTP defines a proxy http
type HTTP struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	logger     zerolog.Logger
	tracer     opentracing.Tracer
	listenAddr string
	ln         net.Listener
	quit       chan struct{}
}

// NewHTTP creates a new proxy http. An empty address listens on a random
// port of the loopback interface.
func NewHTTP(listenAddr string, opts ...Option) *HTTP {
	h := &HTTP{
		mux:        http.NewServeMux(),
		logger:     sealbid.Logger.With().Str("role", "http proxy").Logger(),
		tracer:     opentracing.GlobalTracer(),
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	nextRequestID := func() string {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}

	h.server = &http.Server{
		Handler:           tracing(h.tracer, nextRequestID)(logging(h.logger)(h.mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

// Listen starts the server and blocks until Stop is called.
func (h *HTTP) Listen() error {
	addr := h.listenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return xerrors.Errorf("failed to create conn '%s': %v", h.listenAddr, err)
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	done := make(chan struct{})

	go func() {
		<-h.quit
		h.logger.Info().Msg("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		h.server.SetKeepAlivesEnabled(false)

		err := h.server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("could not gracefully shutdown the server")
		}

		close(done)
	}()

	h.logger.Info().Msgf("server is ready to handle requests at http://%s", ln.Addr())

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return xerrors.Errorf("failed to serve on %s: %v", ln.Addr(), err)
	}

	<-done
	h.logger.Info().Msg("server stopped")

	return nil
}

// Stop stops the server. It must be called once after Listen.
func (h *HTTP) Stop() {
	h.quit <- struct{}{}
}

// GetAddr returns the address the server listens on, or nil if it is not
// listening yet.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler registers the handler for the path.
func (h *HTTP) RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	h.mux.HandleFunc(path, handler)
}

// statusRecorder keeps the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logging is a utility function that logs the http server events
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}

				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Int("status", rec.status).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// tracing is a utility function that adds header tracing and a span for
// every request.
func tracing(tracer opentracing.Tracer, nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = nextRequestID()
			}

			parent, _ := tracer.Extract(opentracing.HTTPHeaders,
				opentracing.HTTPHeadersCarrier(r.Header))

			span := tracer.StartSpan(r.Method+" "+r.URL.Path, ext.RPCServerOption(parent))
			defer span.Finish()

			ext.HTTPMethod.Set(span, r.Method)
			ext.HTTPUrl.Set(span, r.URL.String())
			span.SetTag("requestID", requestID)

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			ctx = opentracing.ContextWithSpan(ctx, span)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(rec, r.WithContext(ctx))

			ext.HTTPStatusCode.Set(span, uint16(rec.status))
		})
	}
}
