package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// MockDeckAPIServer mocks the remote deck resolution API.
type MockDeckAPIServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
	Calls    atomic.Int64
}

// NewMockDeckAPIServer creates a new mock deck API server. Requests to paths
// without a registered handler get a 404.
func NewMockDeckAPIServer(t *testing.T) *MockDeckAPIServer {
	t.Helper()
	m := &MockDeckAPIServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Calls.Add(1)
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockDeckResponse serves a deck body for /hearthstone/deck. cards entries
// repeat per copy, matching the wire format of the real API.
func (m *MockDeckAPIServer) MockDeckResponse(body map[string]interface{}) {
	m.Handlers["/hearthstone/deck"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	}
}

// MockDeckError serves a fixed error status for /hearthstone/deck.
func (m *MockDeckAPIServer) MockDeckError(status int) {
	m.Handlers["/hearthstone/deck"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

// SimpleDeckBody builds a minimal deck API body with the given class and
// card (name, manaCost, rarityId) triples, one entry per copy.
func SimpleDeckBody(class string, cards ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"deckCode": "AAECAtest",
		"format":   "standard",
		"class":    map[string]interface{}{"name": class},
		"cards":    cards,
	}
}

// MockHSGuruServer mocks the deck stats site with canned HTML pages.
type MockHSGuruServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
	Calls    atomic.Int64
}

// NewMockHSGuruServer creates a new mock stats server.
func NewMockHSGuruServer(t *testing.T) *MockHSGuruServer {
	t.Helper()
	m := &MockHSGuruServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Calls.Add(1)
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockPage serves fixed HTML at path.
func (m *MockHSGuruServer) MockPage(path, html string) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html)) //nolint:errcheck // test mock response
	}
}
