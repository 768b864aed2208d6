package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSecret = "hub-test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "7f1c0e4a-5a4e-4a57-9d0c-3b7f8f0d9e11",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", hub.ServeWs(middleware.NewAuth(testSecret)))
	return httptest.NewServer(router)
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func TestHub_BroadcastsPublishedEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := newTestServer(t, hub)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, signToken(t, "staff")), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	got := make(chan Message, 16)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if json.Unmarshal(data, &msg) == nil {
				select {
				case got <- msg:
				default:
				}
			}
		}
	}()

	// Registration is asynchronous, so publish until the client sees one.
	var received Message
	require.Eventually(t, func() bool {
		hub.Publish("ledger.changed", map[string]string{"client_id": "c1"})
		select {
		case received = <-got:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, "ledger.changed", received.Event)
	assert.Equal(t, map[string]interface{}{"client_id": "c1"}, received.Data)
	assert.False(t, received.Timestamp.IsZero())

	cancel()
	<-hub.Done()
	<-readerDone
	_ = conn.Close()
	srv.Close()
}

func TestHub_RejectsUnauthenticated(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := newTestServer(t, hub)
	defer func() {
		srv.Close()
		cancel()
		<-hub.Done()
	}()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"bad signature", "not-a-jwt", http.StatusUnauthorized},
		{"unknown role", signToken(t, "driver"), http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tc.token), nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			_ = resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// No Run loop: the queue fills and further events are dropped.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBufferSize*2; i++ {
			hub.Publish("report.computed", i)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with a full queue")
	}
}
