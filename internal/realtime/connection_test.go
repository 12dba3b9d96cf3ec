package realtime

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portfolio_chat/pkg/logger"
)

// serve upgrades one request, hands the server side connection to onConn and returns a
// dialed client.
func serve(t *testing.T, opts Options, onConn func(*Connection)) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection("alice", ws, opts, logger.Nop())
		conn.Start()
		onConn(conn)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConnection_SendDelivers(t *testing.T) {
	client := serve(t, Options{SendBuffer: 4}, func(c *Connection) {
		assert.NoError(t, c.Send([]byte(`{"n":1}`)))
		assert.NoError(t, c.Send([]byte(`{"n":2}`)))
		_ = c.ReadLoop(func([]byte) {})
	})

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		_, payload, err := client.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, want, string(payload))
	}
}

func TestConnection_ReadLoopPassesFramesInOrder(t *testing.T) {
	got := make(chan string, 2)
	client := serve(t, Options{}, func(c *Connection) {
		_ = c.ReadLoop(func(payload []byte) { got <- string(payload) })
	})

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("first")))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("second")))

	for _, want := range []string{"first", "second"} {
		select {
		case payload := <-got:
			assert.Equal(t, want, payload)
		case <-time.After(5 * time.Second):
			t.Fatal("frame not read")
		}
	}
}

func TestConnection_CloseSendsCodeAndRejectsSends(t *testing.T) {
	sendErr := make(chan error, 1)
	client := serve(t, Options{}, func(c *Connection) {
		c.Close(websocket.ClosePolicyViolation, "bye")
		c.Close(websocket.CloseNormalClosure, "again")
		sendErr <- c.Send([]byte("late"))
	})

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "bye", closeErr.Text)

	assert.ErrorIs(t, <-sendErr, ErrConnectionClosed)
}

func TestConnection_SendDoesNotWaitOnSlowClient(t *testing.T) {
	type outcome struct {
		slowest time.Duration
		err     error
	}
	result := make(chan outcome, 1)
	payload := bytes.Repeat([]byte("x"), 1<<20)

	// the client never reads, so the kernel buffers fill and the write loop stalls
	serve(t, Options{SendBuffer: 1}, func(c *Connection) {
		var res outcome
		for i := 0; i < 200; i++ {
			start := time.Now()
			err := c.Send(payload)
			if took := time.Since(start); took > res.slowest {
				res.slowest = took
			}
			if err != nil {
				res.err = err
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		result <- res
	})

	select {
	case res := <-result:
		assert.Error(t, res.err)
		assert.Less(t, res.slowest, 500*time.Millisecond)
	case <-time.After(writeWait):
		t.Fatal("sender blocked on a slow client")
	}
}

func TestReject(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Reject(ws, "invalid token")
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "invalid token", closeErr.Text)
}
