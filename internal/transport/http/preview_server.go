// Package httpserver serves the reading-mode preview and carries messages
// between the editor and the browser.
package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go-admonitions/internal/contracts"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type renderPayload struct {
	html     string
	filename string
}

// PreviewServer serves the page shell and pushes updates over a WebSocket.
// All connection state is owned by the run loop goroutine.
type PreviewServer struct {
	addr  string
	shell string
	log   logrus.FieldLogger

	mu       sync.Mutex
	started  bool
	server   *http.Server
	listener net.Listener
	stopLoop chan struct{}

	onGoToLine func(contracts.GoToLineMessage)

	browserInbound chan []byte
	updates        chan renderPayload
	cursors        chan contracts.CursorMessage
	settings       chan contracts.SettingsMessage
	register       chan *websocket.Conn
	unregister     chan *websocket.Conn

	upgrader websocket.Upgrader
}

// NewPreviewServer creates a server for addr. Nothing listens until the
// first StartOrUpdate.
func NewPreviewServer(addr string, shell string, log logrus.FieldLogger) *PreviewServer {
	return &PreviewServer{
		addr:  addr,
		shell: shell,
		log:   log,

		browserInbound: make(chan []byte, 64),
		updates:        make(chan renderPayload, 8),
		cursors:        make(chan contracts.CursorMessage, 32),
		settings:       make(chan contracts.SettingsMessage, 8),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// URL returns the browser URL. Once started it reflects the bound address.
func (m *PreviewServer) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return "http://" + m.listener.Addr().String()
	}
	return "http://" + m.addr
}

// Handler returns the HTTP routes of the preview.
func (m *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/ws", m.handleWS)
	mux.HandleFunc("/@mdfs/", m.handleAsset)
	return mux
}

func (m *PreviewServer) start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.addr, err)
	}
	m.listener = ln
	m.server = &http.Server{Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	m.stopLoop = make(chan struct{})
	m.started = true

	go m.runLoop(m.stopLoop)
	go func() {
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.log.WithError(err).Error("preview server stopped")
		}
	}()
	m.log.WithField("url", "http://"+ln.Addr().String()).Info("preview server started")
	return nil
}

// StartOrUpdate starts the server on first use and publishes a fragment.
func (m *PreviewServer) StartOrUpdate(fragment string, path string) error {
	if err := m.start(); err != nil {
		return err
	}
	m.updates <- renderPayload{html: fragment, filename: filepath.Base(path)}
	return nil
}

// UpdateCursor publishes the editor cursor. It is dropped before the server starts.
func (m *PreviewServer) UpdateCursor(msg contracts.CursorMessage) error {
	if !m.running() {
		return nil
	}
	msg.Type = contracts.MessageTypeCursor
	m.cursors <- msg
	return nil
}

// UpdateSettings publishes the enabled types. It is dropped before the server starts.
func (m *PreviewServer) UpdateSettings(enabled []string) error {
	if !m.running() {
		return nil
	}
	m.settings <- contracts.SettingsMessage{Type: contracts.MessageTypeSettings, Enabled: enabled}
	return nil
}

func (m *PreviewServer) loopDone() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLoop
}

func (m *PreviewServer) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Stop shuts the server and its run loop down.
func (m *PreviewServer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.server.Shutdown(ctx)
	close(m.stopLoop)

	m.started = false
	m.server = nil
	m.listener = nil
	return err
}

// SetGoToLineHandler registers the callback for browser go-to-line requests.
// It must be set before the server starts.
func (m *PreviewServer) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	m.onGoToLine = fn
}

func (m *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(m.shell))
}

// handleWS hands the connection to the run loop and forwards what the
// browser sends until the connection fails.
func (m *PreviewServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	stop := m.loopDone()
	select {
	case m.register <- conn:
	case <-stop:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case m.unregister <- conn:
		case <-stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		m.browserInbound <- msg
	}
}

// handleAsset serves local files referenced by the document, addressed by
// their base64url-encoded absolute path.
func (m *PreviewServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(r.URL.Path, "/@mdfs/"))
	if err != nil || len(decoded) == 0 {
		http.NotFound(w, r)
		return
	}

	assetPath := filepath.Clean(string(decoded))
	if !filepath.IsAbs(assetPath) {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(assetPath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, assetPath)
}

// runLoop owns the browser connection and the last known state, replaying
// it to every new connection.
func (m *PreviewServer) runLoop(stop <-chan struct{}) {
	var conn *websocket.Conn

	lastRender := contracts.RenderMessage{Type: contracts.MessageTypeRender}
	lastCursor := contracts.CursorMessage{Type: contracts.MessageTypeCursor}
	var lastSettings *contracts.SettingsMessage
	haveCursor := false

	send := func(v any) {
		if conn != nil && !writeJSON(conn, v) {
			conn = nil
		}
	}
	sendCursor := func() {
		if haveCursor && lastRender.Rev > 0 {
			lastCursor.Rev = lastRender.Rev
			send(lastCursor)
		}
	}

	for {
		select {
		case update := <-m.updates:
			lastRender.Rev++
			lastRender.HTML = update.html
			lastRender.Filename = update.filename
			send(lastRender)
			sendCursor()

		case cursor := <-m.cursors:
			lastCursor = cursor
			haveCursor = true
			sendCursor()

		case settings := <-m.settings:
			lastSettings = &settings
			send(settings)

		case c := <-m.register:
			if conn != nil {
				_ = conn.Close()
			}
			conn = c
			if lastSettings != nil {
				send(*lastSettings)
			}
			send(lastRender)
			sendCursor()

		case c := <-m.unregister:
			if conn == c {
				_ = conn.Close()
				conn = nil
			}

		case raw := <-m.browserInbound:
			m.dispatch(raw)

		case <-stop:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
	}
}

func (m *PreviewServer) dispatch(raw []byte) {
	var envelope contracts.IncomingMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		m.log.WithError(err).Debug("dropping malformed browser message")
		return
	}
	switch envelope.Type {
	case contracts.MessageTypeGoToLine:
		var msg contracts.GoToLineMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		if m.onGoToLine != nil {
			m.onGoToLine(msg)
		}
	}
}

// writeJSON writes a message and reports whether the connection is usable.
func writeJSON(conn *websocket.Conn, v any) bool {
	if err := conn.WriteJSON(v); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
