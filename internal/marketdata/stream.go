package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/models"
)

// QuoteMessage is one quote update from the market feed.
type QuoteMessage struct {
	Op          string   `json:"op"`
	ContestID   string   `json:"contest_id"`
	SelectionID string   `json:"selection_id"`
	Odds        float64  `json:"odds"`
	Volume      *float64 `json:"volume,omitempty"`
	Heartbeat   bool     `json:"heartbeat,omitempty"`
}

// ReconnectConfig controls reconnection behavior.
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// StreamConsumer maintains a WebSocket connection to the market feed and
// writes quote updates into a SnapshotProvider.
type StreamConsumer struct {
	url       string
	authToken string
	snapshot  *SnapshotProvider
	reconnect ReconnectConfig
	logger    *logrus.Logger

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	lastMessageTime time.Time
}

// NewStreamConsumer creates a stream consumer from config.
func NewStreamConsumer(cfg config.MarketFeedConfig, snapshot *SnapshotProvider, logger *logrus.Logger) *StreamConsumer {
	if logger == nil {
		logger = logrus.New()
	}
	rc := DefaultReconnectConfig()
	if cfg.ReconnectSeconds > 0 {
		rc.InitialBackoff = time.Duration(cfg.ReconnectSeconds) * time.Second
	}
	return &StreamConsumer{
		url:       cfg.StreamURL,
		authToken: cfg.AuthToken,
		snapshot:  snapshot,
		reconnect: rc,
		logger:    logger,
	}
}

// Connect dials the feed and starts the read loop.
func (s *StreamConsumer) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to market feed: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()
	s.logger.WithField("url", s.url).Info("Connected to market feed")

	if s.authToken != "" {
		auth := map[string]interface{}{"op": "auth", "token": s.authToken}
		if err := conn.WriteJSON(auth); err != nil {
			s.isConnected = false
			conn.Close()
			return fmt.Errorf("failed to authenticate with market feed: %w", err)
		}
	}

	go s.readLoop(ctx)
	return nil
}

// Run connects with exponential-backoff reconnection until ctx is done.
func (s *StreamConsumer) Run(ctx context.Context) error {
	backoff := s.reconnect.InitialBackoff
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Connect(ctx)
		if err == nil {
			retries = 0
			backoff = s.reconnect.InitialBackoff
			s.waitDisconnect(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("Market feed disconnected, reconnecting")
			continue
		}

		retries++
		if retries > s.reconnect.MaxRetries {
			return fmt.Errorf("market feed reconnect retries exhausted: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"attempt": retries,
			"backoff": backoff.String(),
			"error":   err.Error(),
		}).Warn("Market feed connection failed, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * s.reconnect.BackoffMultiplier)
		if backoff > s.reconnect.MaxBackoff {
			backoff = s.reconnect.MaxBackoff
		}
	}
}

func (s *StreamConsumer) waitDisconnect(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			if !s.IsConnected() {
				return
			}
		}
	}
}

func (s *StreamConsumer) readLoop(ctx context.Context) {
	defer s.Close()

	for {
		var raw json.RawMessage
		if err := s.conn.ReadJSON(&raw); err != nil {
			if ctx.Err() == nil {
				s.logger.WithField("error", err.Error()).Warn("Market feed read failed")
			}
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		var msg QuoteMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.WithField("error", err.Error()).Warn("Malformed feed message dropped")
			continue
		}
		if msg.Heartbeat || msg.Op != "quote" {
			continue
		}
		s.applyQuote(msg)
	}
}

func (s *StreamConsumer) applyQuote(msg QuoteMessage) {
	contestID, err := uuid.Parse(msg.ContestID)
	if err != nil {
		s.logger.WithField("contest_id", msg.ContestID).Warn("Feed message with invalid contest id dropped")
		return
	}
	if msg.SelectionID == "" {
		return
	}

	s.snapshot.Update(contestID, msg.SelectionID, models.MarketQuote{
		SelectionID: msg.SelectionID,
		Odds:        msg.Odds,
		Volume:      msg.Volume,
	})
}

// IsConnected reports whether the stream is connected.
func (s *StreamConsumer) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message.
func (s *StreamConsumer) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection.
func (s *StreamConsumer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.isConnected = false
	return s.conn.Close()
}
