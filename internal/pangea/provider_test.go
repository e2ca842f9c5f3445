package pangea

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// newEchoServer starts a WebSocket server that reads one sparkOrderRequest,
// replies with each of records as a text message, then a {"done":true}
// envelope. It mirrors just enough of the upstream protocol for Connector's
// request/stream plumbing to be exercised end-to-end.
func newEchoServer(t *testing.T, records []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req sparkOrderRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		for _, rec := range records {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(rec)); err != nil {
				return
			}
		}
		done, _ := json.Marshal(map[string]bool{"done": true})
		conn.WriteMessage(websocket.TextMessage, done)
	})

	return httptest.NewServer(handler)
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestConnector_Backfill_StreamsUntilDone(t *testing.T) {
	records := []string{`{"block_number":1}`, `{"block_number":2}`}
	srv := newEchoServer(t, records)
	defer srv.Close()

	c := NewConnector(wsURL(srv.URL), "user", "pass", chainFUEL, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	messages, errs, err := c.Backfill(ctx, "0xmarket", 100)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}

	var got []string
	for msg := range messages {
		got = append(got, string(msg))
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d: %v", len(got), len(records), got)
	}

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
	default:
	}
}

func TestConnector_Subscribe_SendsSubscribeTrueAndResolvesChain(t *testing.T) {
	reqCh := make(chan sparkOrderRequest, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req sparkOrderRequest
		if err := conn.ReadJSON(&req); err == nil {
			reqCh <- req
		}
		done, _ := json.Marshal(map[string]bool{"done": true})
		conn.WriteMessage(websocket.TextMessage, done)
	}))
	defer srv.Close()

	c := NewConnector(wsURL(srv.URL), "user", "pass", "not-a-real-chain", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, _, err := c.Subscribe(ctx, "0xmarket", 42)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case req := <-reqCh:
		if !req.Subscribe {
			t.Fatalf("expected Subscribe=true, got %+v", req)
		}
		if req.FromBlock != 42 {
			t.Fatalf("from_block = %d, want 42", req.FromBlock)
		}
		if len(req.Chains) != 1 || req.Chains[0] != chainFUELTestnet {
			t.Fatalf("unknown chain should resolve to testnet default, got %+v", req.Chains)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for request")
	}
}
