package jsonbin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"voice-qa/internal/domain"
	"voice-qa/internal/infra/corpus"
)

// ErrUnavailable is returned while the breaker is open after repeated
// failures.
var ErrUnavailable = errors.New("corpus endpoint temporarily unavailable")

// Client fetches the latest corpus revision from a jsonbin bin.
type Client struct {
	binID      string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(binID, secretKey string, logger *slog.Logger) *Client {
	return NewClientWithURL(binID, secretKey, "https://api.jsonbin.io", logger)
}

func NewClientWithURL(binID, secretKey, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		binID:      binID,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "jsonbin",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

func (c *Client) Name() string {
	return "jsonbin " + c.binID
}

func (c *Client) Load(ctx context.Context) (*domain.Corpus, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	return result.(*domain.Corpus), nil
}

func (c *Client) fetch(ctx context.Context) (*domain.Corpus, error) {
	url := fmt.Sprintf("%s/b/%s/latest", c.baseURL, c.binID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("secret-key", c.secretKey)
	req.Header.Set("X-Master-Key", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jsonbin error %d: %s", resp.StatusCode, string(body))
	}

	// Newer API versions wrap the document in a record envelope.
	var envelope struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Record) > 0 {
		body = envelope.Record
	}

	return corpus.DecodeJSON(body)
}
