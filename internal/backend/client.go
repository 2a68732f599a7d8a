package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

const defaultMaxBodyBytes = 10 << 20

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/mindmap-service/backend")

// Config holds backend client configuration
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxBodyBytes int64

	// Circuit breaker tuning
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultConfig returns the client defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          10 * time.Second,
		MaxBodyBytes:     defaultMaxBodyBytes,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		OpenTimeout:      60 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.8,
	}
}

// Client reads clinical records from the backend REST API on behalf of the
// authenticated caller, whose bearer token is forwarded unchanged.
type Client struct {
	base       *url.URL
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxBody    int64
	normalizer *normalize.Normalizer
	logger     *zap.Logger
}

// New creates a Client. normalizer may be nil, in which case one without a
// metrics recorder is used.
func New(cfg Config, normalizer *normalize.Normalizer, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("backend")
	if normalizer == nil {
		normalizer = normalize.New(logger, nil)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host are required", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "clinical-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
		// Answers about the caller or the record are not backend faults,
		// and neither is a caller that went away.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, clinical.ErrNotFound) ||
				errors.Is(err, clinical.ErrForbidden) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		base:       base,
		http:       &http.Client{Timeout: timeout},
		breaker:    breaker,
		maxBody:    maxBody,
		normalizer: normalizer,
		logger:     logger,
	}, nil
}

// GetPatient fetches one patient.
func (c *Client) GetPatient(ctx context.Context, patientID string) (*clinical.Patient, error) {
	body, err := c.get(ctx, "/patients/"+url.PathEscape(patientID), nil)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Patient(ctx, body)
}

// ListPrescriptions fetches a patient's prescriptions in backend order.
func (c *Client) ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	body, err := c.get(ctx, "/patients/"+url.PathEscape(patientID)+"/prescriptions", nil)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Prescriptions(ctx, body), nil
}

// SearchMedicines queries the medicines catalog. When the backend does not
// report a total, one is estimated from the page so that a full page still
// advertises a next one.
func (c *Client) SearchMedicines(ctx context.Context, search string, params pagination.Params) ([]clinical.Medicine, int, error) {
	params.Validate()
	query := params.Values()
	if search != "" {
		query.Set("search", search)
	}

	body, err := c.get(ctx, "/medicines", query)
	if err != nil {
		return nil, 0, err
	}

	medicines := c.normalizer.Medicines(ctx, body)
	total, ok := normalize.Total(body)
	if !ok {
		total = params.CalculateOffset() + len(medicines)
		if len(medicines) == params.Limit {
			total++
		}
	}
	return medicines, total, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "backend.GET",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.route", path)),
	)
	defer span.End()

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, u.String(), path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", clinical.ErrUnavailable, err)
		}
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.Warn("backend request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return result.([]byte), nil
}

func (c *Client) do(ctx context.Context, target, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if tok, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", clinical.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, clinical.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", path, clinical.ErrForbidden)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", path, ErrResponseTooLarge, c.maxBody)
	}
	return body, nil
}
