package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/society-elections/server/internal/config"
	"github.com/society-elections/server/internal/mail"
	"github.com/society-elections/server/internal/testutil"
	"github.com/society-elections/server/internal/voting"
)

const testAdminToken = "test-admin-token"

// recordingMailer captures outgoing mail instead of delivering it.
// Sends happen on handler goroutines, so access goes through the lock.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func setupTest(t *testing.T) (*gin.Engine, *Env) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	logger := testutil.Logger()
	env := &Env{
		DB:     db,
		Logger: logger,
		Cfg: config.Config{
			AdminToken: testAdminToken,
			CORSOrigin: "http://localhost:3000",
			RootURL:    "http://localhost:8080",
		},
		Mailer: &recordingMailer{},
		Engine: voting.NewEngine(db, logger),
	}
	router := gin.New()
	SetupRoutes(router, env)
	return router, env
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getWithHeader(router http.Handler, path, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(header, value)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	return postFormFrom(router, path, form, "192.0.2.1:1234")
}

// postFormFrom lets rate-limited endpoints be hit repeatedly within a
// test by varying the client address.
func postFormFrom(router http.Handler, path string, form url.Values, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
