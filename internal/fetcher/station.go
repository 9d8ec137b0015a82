package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html"
)

const (
	defaultSourceURL = "https://pirireis.mgm.gov.tr/domgi"
	defaultUserAgent = "Mozilla/5.0 (windwatch/1.0)"
	maxBodyBytes     = 8 << 20
)

// StationOptions parameterise the upstream station fetcher.
type StationOptions struct {
	SourceURL   string
	StationName string
	UserAgent   string
	Timeout     time.Duration
	// MaxFailures consecutive failures open the circuit for OpenTimeout.
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Station scrapes the coastal observation page and extracts one station.
type Station struct {
	opts    StationOptions
	logger  zerolog.Logger
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	target  string
}

// NewStation constructs a station fetcher.
func NewStation(opts StationOptions, logger zerolog.Logger) *Station {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.SourceURL == "" {
		opts.SourceURL = defaultSourceURL
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Minute
	}

	log := logger.With().Str("component", "station_fetcher").Logger()
	maxFailures := opts.MaxFailures

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "station",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
		},
	})

	return &Station{
		opts:    opts,
		logger:  log,
		client:  &http.Client{Timeout: opts.Timeout},
		breaker: breaker,
		target:  normalizeName(opts.StationName),
	}
}

// FetchStation downloads the source page and returns the configured station.
func (s *Station) FetchStation(ctx context.Context) (StationRecord, error) {
	if s.target == "" {
		return StationRecord{}, errors.New("station name not configured")
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return StationRecord{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return StationRecord{}, err
	}

	record, ok := result.(StationRecord)
	if !ok {
		return StationRecord{}, errors.New("unexpected result type from circuit breaker")
	}
	return record, nil
}

func (s *Station) fetch(ctx context.Context) (StationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.SourceURL, nil)
	if err != nil {
		return StationRecord{}, fmt.Errorf("create station request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return StationRecord{}, fmt.Errorf("fetch station page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return StationRecord{}, fmt.Errorf("read station page: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StationRecord{}, fmt.Errorf("station source error: HTTP %d", resp.StatusCode)
	}

	text, err := documentText(body)
	if err != nil {
		return StationRecord{}, fmt.Errorf("parse station page: %w", err)
	}

	entries, err := decodeStationArray(text)
	if err != nil {
		return StationRecord{}, err
	}

	for _, entry := range entries {
		if normalizeName(fmt.Sprint(entry[fieldStationName])) == s.target {
			s.logger.Debug().Int("stations", len(entries)).Msg("station located")
			return StationRecord{
				StationName: s.opts.StationName,
				Data:        entry,
				FetchedAt:   time.Now().UTC(),
				SourceURL:   s.opts.SourceURL,
			}, nil
		}
	}

	return StationRecord{}, fmt.Errorf("%w: %s", ErrStationNotFound, s.opts.StationName)
}

// documentText concatenates every text node of the document, script bodies included.
func documentText(body []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return b.String(), nil
}

// decodeStationArray slices from the first '[' to the last ']' and decodes it.
func decodeStationArray(text string) ([]map[string]any, error) {
	first := strings.Index(text, "[")
	last := strings.LastIndex(text, "]")
	if first == -1 || last == -1 || last <= first {
		return nil, ErrNoPayload
	}

	var raw any
	if err := json.Unmarshal([]byte(text[first:last+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode station array: %w", err)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, ErrNoPayload
	}

	entries := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			entries = append(entries, obj)
		}
	}
	return entries, nil
}

var _ StationProvider = (*Station)(nil)
