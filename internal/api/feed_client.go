package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// DefaultEndpoint is the public market-data download endpoint.
const DefaultEndpoint = "https://www.smard.de/nip-download-manager/nip/download/market-data"

const maxBodySize = 20 * 1024 * 1024

var (
	ErrRequest        = errors.New("error making feed request")
	ErrStatus         = errors.New("error status from feed")
	ErrInvalidRequest = errors.New("invalid feed request")
)

// The upstream rejects requests without a browser-like header set.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:85.0) Gecko/20100101 Firefox/85.0",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "de,en-US;q=0.7,en;q=0.3",
	"Content-Type":    "application/json;charset=utf-8",
	"Origin":          "https://www.smard.de",
	"Connection":      "keep-alive",
	"Referer":         "https://www.smard.de/home/downloadcenter/download-marktdaten",
	"DNT":             "1",
	"Sec-GPC":         "1",
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError reports a network failure or a non-2xx response.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch feed: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch feed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type requestForm struct {
	Format        string `json:"format"`
	ModuleIDs     []int  `json:"moduleIds"`
	Region        string `json:"region"`
	TimestampFrom int64  `json:"timestamp_from"`
	TimestampTo   int64  `json:"timestamp_to"`
	Type          string `json:"type"`
	Language      string `json:"language"`
}

type marketDataRequest struct {
	RequestForm []requestForm `json:"request_form"`
}

// Options tunes a FeedClient. Zero values fall back to defaults.
type Options struct {
	Language          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            logrus.FieldLogger
}

// FeedClient posts market-data requests to the upstream endpoint.
type FeedClient struct {
	endpoint  string
	client    HTTPClient
	limiter   *rate.Limiter
	validator *RequestValidator
	language  string
	timeout   time.Duration
	logger    logrus.FieldLogger
}

func NewFeedClient(endpoint string, client HTTPClient, opts Options) *FeedClient {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Language == "" {
		opts.Language = "de"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &FeedClient{
		endpoint:  endpoint,
		client:    client,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		validator: NewRequestValidator(),
		language:  opts.Language,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

// Fetch requests the XML payload for key over window and returns the raw body.
func (f *FeedClient) Fetch(ctx context.Context, key models.RequestKey, window models.TimeWindow) ([]byte, error) {
	if err := f.validator.Validate(key, window, f.language); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	payload, err := json.Marshal(marketDataRequest{
		RequestForm: []requestForm{{
			Format:        "XML",
			ModuleIDs:     key.ModuleIDs,
			Region:        key.Region,
			TimestampFrom: window.FromMillis(),
			TimestampTo:   window.ToMillis(),
			Type:          key.Type,
			Language:      f.language,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("%w: %v", ErrRequest, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("%w: %v", ErrRequest, err)}
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	f.logger.WithFields(logrus.Fields{
		"slot": key.Slot(),
		"from": window.FromMillis(),
		"to":   window.ToMillis(),
	}).Debug("Requesting feed data")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("%w: %v", ErrRequest, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	// one byte past the limit tells a full body from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("%w: read body: %v", ErrRequest, err)}
	}
	if len(body) > maxBodySize {
		return nil, &FetchError{Err: fmt.Errorf("%w: body exceeds %d bytes", ErrRequest, maxBodySize)}
	}
	return body, nil
}

// FetchFunc binds key so the result can be handed to the feed cache.
func (f *FeedClient) FetchFunc(key models.RequestKey) func(context.Context, models.TimeWindow) ([]byte, error) {
	return func(ctx context.Context, window models.TimeWindow) ([]byte, error) {
		return f.Fetch(ctx, key, window)
	}
}
