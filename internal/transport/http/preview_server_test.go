package httpserver

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-admonitions/internal/contracts"
	"go-admonitions/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *PreviewServer {
	t.Helper()
	s := NewPreviewServer("127.0.0.1:0", "<html>shell</html>", logging.Discard())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dial(t *testing.T, s *PreviewServer) *websocket.Conn {
	t.Helper()
	url := "ws://" + strings.TrimPrefix(s.URL(), "http://") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestIndexServesShell(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>shell</html>", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetRoute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.txt")
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0o644))

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/@mdfs/"+encode(path), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pixels", rec.Body.String())

	for _, target := range []string{"/@mdfs/" + encode("relative.txt"), "/@mdfs/" + encode(dir), "/@mdfs/!!"} {
		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/@mdfs/"+encode(path), nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReplaysStateToNewConnection(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.StartOrUpdate("<p>one</p>", "/tmp/doc.md"))
	require.NoError(t, s.UpdateSettings([]string{"note", "tip"}))

	conn := dial(t, s)

	var settings contracts.SettingsMessage
	require.NoError(t, conn.ReadJSON(&settings))
	assert.Equal(t, contracts.MessageTypeSettings, settings.Type)
	assert.Equal(t, []string{"note", "tip"}, settings.Enabled)

	var render contracts.RenderMessage
	require.NoError(t, conn.ReadJSON(&render))
	assert.Equal(t, "<p>one</p>", render.HTML)
	assert.Equal(t, "doc.md", render.Filename)
	assert.Equal(t, uint64(1), render.Rev)

	require.NoError(t, s.UpdateCursor(contracts.CursorMessage{Line: 4}))
	var cursor contracts.CursorMessage
	require.NoError(t, conn.ReadJSON(&cursor))
	assert.Equal(t, contracts.MessageTypeCursor, cursor.Type)
	assert.Equal(t, 4, cursor.Line)
	assert.Equal(t, uint64(1), cursor.Rev)
}

func TestGoToLineFromBrowser(t *testing.T) {
	s := newTestServer(t)
	got := make(chan int, 1)
	s.SetGoToLineHandler(func(msg contracts.GoToLineMessage) { got <- msg.Line })
	require.NoError(t, s.StartOrUpdate("", "doc.md"))

	conn := dial(t, s)
	require.NoError(t, conn.WriteJSON(contracts.GoToLineMessage{Type: contracts.MessageTypeGoToLine, Line: 12}))

	select {
	case line := <-got:
		assert.Equal(t, 12, line)
	case <-time.After(5 * time.Second):
		t.Fatal("go_to_line was not dispatched")
	}
}

func TestUpdatesBeforeStartAreDropped(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.UpdateCursor(contracts.CursorMessage{Line: 1}))
	assert.NoError(t, s.UpdateSettings(nil))
	assert.Equal(t, "http://127.0.0.1:0", s.URL())
	assert.NoError(t, s.Stop())
}

func encode(path string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(path))
}
