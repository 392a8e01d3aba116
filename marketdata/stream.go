package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"momentum-scout/cache"

	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 2 * time.Second
	reconnectMaxDelay  = 60 * time.Second
)

// Stream maintains a websocket connection to the provider's trade feed and
// writes every trade price into the Redis cache. Symbols can be re-pointed
// between scan cycles; the stream resubscribes on the live connection.
type Stream struct {
	url       string
	keyID     string
	secretKey string
	redis     *cache.RedisClient

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols []string

	done chan bool
}

// NewStream creates a new price stream
func NewStream(url, keyID, secretKey string, redis *cache.RedisClient) *Stream {
	return &Stream{
		url:       url,
		keyID:     keyID,
		secretKey: secretKey,
		redis:     redis,
		done:      make(chan bool),
	}
}

type streamRequest struct {
	Action string   `json:"action"`
	Key    string   `json:"key,omitempty"`
	Secret string   `json:"secret,omitempty"`
	Trades []string `json:"trades,omitempty"`
}

type streamMessage struct {
	Type   string  `json:"T"`
	Symbol string  `json:"S"`
	Price  float64 `json:"p"`
	Msg    string  `json:"msg"`
}

// Start runs the stream with automatic reconnection until Stop is called
func (s *Stream) Start() {
	go func() {
		delay := reconnectBaseDelay
		for {
			select {
			case <-s.done:
				return
			default:
			}

			started := time.Now()
			if err := s.runOnce(); err != nil {
				log.Printf("⚠️ Price stream disconnected: %v (reconnecting in %v)", err, delay)
			}

			// A session that held for a while earns a fresh backoff
			if time.Since(started) > time.Minute {
				delay = reconnectBaseDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
		}
	}()
	log.Println("📡 Price stream started")
}

// Stop terminates the stream and closes the connection
func (s *Stream) Stop() {
	close(s.done)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	log.Println("📡 Price stream stopped")
}

// Subscribe replaces the tracked symbol set. Applied immediately when the
// connection is live, otherwise on the next reconnect. Cached prices for
// symbols leaving the set are dropped so they cannot serve stale lookups.
func (s *Stream) Subscribe(symbols []string) {
	s.mu.Lock()
	previous := s.symbols
	s.symbols = append([]string(nil), symbols...)
	conn := s.conn
	s.mu.Unlock()

	ctx := context.Background()
	for _, sym := range droppedSymbols(previous, symbols) {
		s.redis.DeletePrice(ctx, sym)
	}

	if conn == nil || len(symbols) == 0 {
		return
	}
	if err := s.writeJSON(streamRequest{Action: "subscribe", Trades: symbols}); err != nil {
		log.Printf("⚠️ Failed to subscribe to %d symbols: %v", len(symbols), err)
		return
	}
	log.Printf("📡 Subscribed to %d symbols", len(symbols))
}

// droppedSymbols returns the symbols present in old but absent from current
func droppedSymbols(old, current []string) []string {
	kept := make(map[string]bool, len(current))
	for _, sym := range current {
		kept[sym] = true
	}

	var dropped []string
	for _, sym := range old {
		if !kept[sym] {
			dropped = append(dropped, sym)
		}
	}
	return dropped
}

func (s *Stream) runOnce() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	symbols := append([]string(nil), s.symbols...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		conn.Close()
	}()

	if err := s.writeJSON(streamRequest{Action: "auth", Key: s.keyID, Secret: s.secretKey}); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if len(symbols) > 0 {
		if err := s.writeJSON(streamRequest{Action: "subscribe", Trades: symbols}); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	log.Printf("✅ Connected to %s", s.url)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(data)
	}
}

func (s *Stream) handleMessage(data []byte) {
	// The feed delivers arrays of typed messages
	var messages []streamMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return
	}

	ctx := context.Background()
	for _, msg := range messages {
		switch msg.Type {
		case "t":
			if msg.Symbol != "" && msg.Price > 0 {
				s.redis.SetPrice(ctx, msg.Symbol, msg.Price)
			}
		case "error":
			log.Printf("⚠️ Stream error message: %s", msg.Msg)
		}
	}
}

// writeJSON sends a JSON message to the connection thread-safely
func (s *Stream) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return s.conn.WriteJSON(v)
}
