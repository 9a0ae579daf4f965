package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/metasepia/twitchapi"
)

// MockTwitchServer creates a test server that mocks Twitch Helix API responses
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests map[string]int
	title    string
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
		requests: make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		m.mu.Lock()
		m.requests[key]++
		m.mu.Unlock()
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Requests reports how many requests hit path.
func (m *MockTwitchServer) Requests(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

// MockUserResponse adds a handler for /helix/users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handlers["/helix/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockChannelResponse adds a handler for /helix/channels that reports the
// title last passed to SetTitle.
func (m *MockTwitchServer) MockChannelResponse(broadcasterID, login, title string) {
	m.SetTitle(title)
	m.Handlers["/helix/channels"] = func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		current := m.title
		m.mu.Unlock()
		data := []map[string]string{}
		if r.URL.Query().Get("broadcaster_id") == broadcasterID {
			data = append(data, map[string]string{
				"broadcaster_id":    broadcasterID,
				"broadcaster_login": login,
				"title":             current,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data}) //nolint:errcheck // test mock response
	}
}

// SetTitle changes the title served by MockChannelResponse.
func (m *MockTwitchServer) SetTitle(title string) {
	m.mu.Lock()
	m.title = title
	m.mu.Unlock()
}

// MockOAuthTokenResponse adds a handler for OAuth token endpoint
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// HelixClient returns a client whose Helix and token requests all land on m.
func (m *MockTwitchServer) HelixClient() *twitchapi.HelixClient {
	hc := &http.Client{Transport: &rewriteTransport{host: m.URL}}
	ts := &twitchapi.TokenSource{ClientID: "test-client-id", ClientSecret: "test-secret", HTTPClient: hc}
	ts.SetToken("test-token", time.Now().Add(time.Hour))
	return &twitchapi.HelixClient{AppTokenSource: ts, ClientID: "test-client-id", HTTPClient: hc}
}

type rewriteTransport struct {
	host string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(t.host, "http://")
	return http.DefaultTransport.RoundTrip(req)
}
