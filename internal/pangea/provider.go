package pangea

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// chainFUEL and chainFUELTestnet mirror pangea_client::ChainId's two Fuel
// variants (see original_source/src/indexer/pangea.rs).
const (
	chainFUEL        = "FUEL"
	chainFUELTestnet = "FUELTESTNET"
)

// sparkOrderRequest mirrors pangea_client's GetSparkOrderRequest wire shape:
// an inclusive-from, optional-to block range bounded to one market.
type sparkOrderRequest struct {
	RequestID  string   `json:"request_id"`
	FromBlock  int64    `json:"from_block"`
	ToBlock    *int64   `json:"to_block,omitempty"`
	Subscribe  bool     `json:"subscribe"`
	MarketIDIn []string `json:"market_id__in"`
	Chains     []string `json:"chains"`
}

// Connector is a single-endpoint Pangea WebSocket client satisfying
// ingest.Provider. It authenticates once per connection with
// PANGEA_USERNAME/PANGEA_PASSWORD and issues one query per call, following
// the Rust reference client's one-request-per-connection pattern rather
// than multiplexing many markets over a shared socket.
type Connector struct {
	url      string
	username string
	password string
	chain    string
	logger   *zap.Logger
	dialer   websocket.Dialer
}

// NewConnector builds a Connector from the upstream connection parameters
// named in spec.md §6 (PANGEA_URL, PANGEA_USERNAME, PANGEA_PASSWORD, CHAIN).
func NewConnector(url, username, password, chain string, logger *zap.Logger) *Connector {
	resolvedChain := chainFUELTestnet
	if chain == chainFUEL {
		resolvedChain = chainFUEL
	}
	return &Connector{
		url:      url,
		username: username,
		password: password,
		chain:    resolvedChain,
		logger:   logger,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
	}
}

// Backfill implements ingest.Provider. It opens one connection, sends a
// non-subscribed request from fromBlock for marketID with no to_block, and
// closes both channels once the provider signals end-of-range. No chain head
// is fetched here: where the range ends is decided by the server.
func (c *Connector) Backfill(ctx context.Context, marketID string, fromBlock int64) (<-chan []byte, <-chan error, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, nil, err
	}

	req := sparkOrderRequest{
		RequestID:  uuid.NewString(),
		FromBlock:  fromBlock,
		ToBlock:    nil, // server resolves "current head" server-side for a bounded, non-subscribed range
		Subscribe:  false,
		MarketIDIn: []string{marketID},
		Chains:     []string{c.chain},
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("pangea: send backfill request: %w", err)
	}

	messages, errs := c.stream(ctx, conn)
	return messages, errs, nil
}

// Subscribe implements ingest.Provider. It opens one connection and
// requests an open-ended range starting at fromBlock, staying open as new
// blocks arrive until ctx is cancelled or the connection drops.
func (c *Connector) Subscribe(ctx context.Context, marketID string, fromBlock int64) (<-chan []byte, <-chan error, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, nil, err
	}

	req := sparkOrderRequest{
		RequestID:  uuid.NewString(),
		FromBlock:  fromBlock,
		ToBlock:    nil,
		Subscribe:  true,
		MarketIDIn: []string{marketID},
		Chains:     []string{c.chain},
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("pangea: send subscribe request: %w", err)
	}

	messages, errs := c.stream(ctx, conn)
	return messages, errs, nil
}

func (c *Connector) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := http.Header{}
	headers.Set("X-Pangea-Username", c.username)
	headers.Set("X-Pangea-Password", c.password)

	conn, _, err := c.dialer.DialContext(ctx, c.url, headers)
	if err != nil {
		return nil, fmt.Errorf("pangea: dial %s: %w", c.url, err)
	}

	conn.SetReadLimit(4 << 20)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	return conn, nil
}

// stream drains conn into the returned channels on a dedicated goroutine,
// closing both and the connection itself when the read loop ends.
func (c *Connector) stream(ctx context.Context, conn *websocket.Conn) (<-chan []byte, <-chan error) {
	messages := make(chan []byte, 4096)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)
		defer conn.Close()

		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			messageType, raw, err := conn.ReadMessage()
			if err != nil {
				c.logger.Debug("pangea stream ended", zap.Error(err))
				errs <- err
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}

			var envelope struct {
				Done bool            `json:"done"`
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Done {
				return
			}

			select {
			case messages <- raw:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return messages, errs
}
