package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/sensorboard/internal/broadcast"
	"github.com/jpalmerr/sensorboard/internal/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. This prevents goroutine leaks when clients are slow or
	// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	// observerBuffer is the per-connection message queue. At the reference
	// 10 Hz rate this is ten seconds of updates before a stalled client is
	// evicted.
	observerBuffer = 100

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "SensorBoard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// HistorySource provides on-demand reads of the sample history.
type HistorySource interface {
	Snapshot() []float64
	History() store.History
}

// Registry tracks live observers.
type Registry interface {
	Register(o broadcast.Observer) error
	Deregister(id string)
}

// Server handles HTTP requests for the SensorBoard dashboard and API.
//
// Server provides five endpoints:
//   - GET /: Serves the embedded dashboard HTML
//   - GET /data: Returns the current snapshot as a JSON array
//   - GET /api/history: Returns capacity, fill count, and samples as JSON
//   - GET /api/sse: Server-Sent Events stream of history then updates
//   - GET /ws: WebSocket stream of history then updates
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	history    HistorySource
	registry   Registry
	port       int
	httpServer *http.Server
	upgrader   websocket.Upgrader
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - history: Source for snapshot reads
//   - registry: Observer registry for live streams
//   - port: TCP port to listen on
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "SensorBoard" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(history HistorySource, registry Registry, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		history:  history,
		registry: registry,
		port:     port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		assets: assets,
		title:  title,
		logger: logger,
	}
}

// Handler returns the request router. It is exposed for tests and for
// embedding the API in another server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/ws", s.handleWebSocket)

	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE and
		// hijacked WebSocket connections.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleData returns the current snapshot, oldest first, as a JSON array.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.history.Snapshot())
}

// handleHistory returns the snapshot annotated with capacity and fill count.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.history.History())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	// encode before writing headers so NaN samples yield a clean 500
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		http.Error(w, "failed to encode samples", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// handleSSE streams history and updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or eviction.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// registration queues the history message
	obs := broadcast.NewChannelObserver(observerBuffer)
	if err := s.registry.Register(obs); err != nil {
		http.Error(w, "failed to register observer", http.StatusServiceUnavailable)
		return
	}
	defer s.registry.Deregister(obs.ID())

	s.logger.Debug("sse client connected", "observer_id", obs.ID(), "remote", r.RemoteAddr)

	s.stream(r.Context(), obs, writeAndFlush)

	s.logger.Debug("sse client disconnected", "observer_id", obs.ID())
}

// handleWebSocket upgrades the connection and streams history and updates as
// JSON text frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the reader detects client-initiated close; inbound frames are ignored
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	obs := broadcast.NewChannelObserver(observerBuffer)
	if err := s.registry.Register(obs); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "registration failed"),
			time.Now().Add(time.Second))
		return
	}
	defer s.registry.Deregister(obs.ID())

	s.logger.Info("websocket client connected", "observer_id", obs.ID(), "remote", r.RemoteAddr)

	s.stream(ctx, obs, func(data []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	s.logger.Info("websocket client disconnected", "observer_id", obs.ID())
}

// stream drains obs into write until the context ends, the observer is
// evicted, or a write fails.
func (s *Server) stream(ctx context.Context, obs *broadcast.ChannelObserver, write func([]byte) error) {
	for {
		select {
		case msg := <-obs.Messages():
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Warn("failed to encode message", "event", msg.Event, "error", err)
				continue
			}
			if err := write(data); err != nil {
				return
			}

		case <-obs.Done():
			s.logger.Warn("observer evicted for falling behind", "observer_id", obs.ID())
			return

		case <-ctx.Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
