package probsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
)

// scoreRequest is the JSON payload sent to the model service.
type scoreRequest struct {
	ContestID  string    `json:"contest_id"`
	Venue      string    `json:"venue"`
	StartTime  time.Time `json:"start_time"`
	Selections []string  `json:"selections"`
}

// scoreResponse is the JSON payload returned by the model service.
type scoreResponse struct {
	ContestID string             `json:"contest_id"`
	Scores    map[string]float64 `json:"scores"`
	ModelID   string             `json:"model_id"`
}

// HTTPSource fetches raw win scores from the model service over HTTP.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *RateLimitedHTTPClient
	logger  *logrus.Logger
}

// NewHTTPSource creates an HTTP score source from config.
func NewHTTPSource(cfg config.ModelAPIConfig, logger *logrus.Logger) *HTTPSource {
	if logger == nil {
		logger = logrus.New()
	}

	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.RetryAttempts
	httpCfg.RateLimit = cfg.RateLimitPerSec

	return &HTTPSource{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  NewRateLimitedHTTPClient(httpCfg, logger),
		logger:  logger,
	}
}

// Scores requests raw scores for every contestant in the contest. The
// response must cover every requested selection; a partial response is an
// error so the caller never sizes a stake on silently missing scores.
func (s *HTTPSource) Scores(ctx context.Context, contest *models.Contest) (map[string]float64, error) {
	selections := make([]string, 0, len(contest.Quotes))
	for id := range contest.Quotes {
		selections = append(selections, id)
	}
	sort.Strings(selections)

	payload, err := json.Marshal(scoreRequest{
		ContestID:  contest.ID.String(),
		Venue:      contest.Venue,
		StartTime:  contest.StartTime,
		Selections: selections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	url := s.baseURL + "/v1/scores"
	req, err := retryablehttp.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues("error", "false").Inc()
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ModelRequestsTotal.WithLabelValues("error", "false").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model service returned status %d: %s", resp.StatusCode, string(body))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.ModelRequestsTotal.WithLabelValues("error", "false").Inc()
		return nil, fmt.Errorf("failed to decode score response: %w", err)
	}

	for _, id := range selections {
		if _, ok := out.Scores[id]; !ok {
			metrics.ModelRequestsTotal.WithLabelValues("partial", "false").Inc()
			return nil, fmt.Errorf("model response missing score for selection %s", id)
		}
	}

	metrics.ModelRequestsTotal.WithLabelValues("ok", "false").Inc()
	s.logger.WithFields(logrus.Fields{
		"contest_id": contest.ID,
		"selections": len(selections),
		"model_id":   out.ModelID,
	}).Debug("Fetched model scores")

	return out.Scores, nil
}

// Close releases the underlying HTTP client.
func (s *HTTPSource) Close() error {
	return s.client.Close()
}
