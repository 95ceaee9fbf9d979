package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

const (
	productsCollection    = "products"
	defaultRequestTimeout = 5 * time.Second
	maxResponseBytes      = 8 << 20
)

// HTTPOptions задаёт параметры HTTP-клиента каталога.
type HTTPOptions struct {
	Client         *http.Client
	Logger         *log.Entry
	RequestTimeout time.Duration
	BreakerName    string
}

// HTTPOption настраивает HTTPCatalog.
type HTTPOption func(*HTTPOptions)

// WithHTTPClient задаёт http.Client (в тестах: клиент httptest-сервера).
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.Client = client
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.Logger = logger
	}
}

// WithRequestTimeout ограничивает один запрос к каталогу.
func WithRequestTimeout(timeout time.Duration) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.RequestTimeout = timeout
	}
}

// HTTPCatalog читает коллекцию products по HTTP через circuit breaker.
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
	logger  *log.Entry
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewHTTPCatalog создаёт клиент каталога с базовым адресом baseURL.
func NewHTTPCatalog(baseURL string, options ...HTTPOption) *HTTPCatalog {
	opts := HTTPOptions{
		RequestTimeout: defaultRequestTimeout,
		BreakerName:    "catalog",
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "catalog-client")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	logger := opts.Logger
	settings := gobreaker.Settings{
		Name:        opts.BreakerName,
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		// Клиент, отменивший запрос, не говорит ничего о здоровье каталога.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("catalog circuit breaker state changed")
		},
	}

	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  opts.Client,
		logger:  logger,
		timeout: opts.RequestTimeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// ListProducts выполняет GET <base>/products.
func (c *HTTPCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
		return nil, err
	}
	return result.([]domain.Product), nil
}

// State возвращает состояние circuit breaker (для health checks).
func (c *HTTPCatalog) State() gobreaker.State {
	return c.cb.State()
}

func (c *HTTPCatalog) fetch(ctx context.Context) ([]domain.Product, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/" + productsCollection
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: GET %s returned %d", domain.ErrCatalogUnavailable, url, resp.StatusCode)
	}

	var products []domain.Product
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog products: %w", err)
	}

	c.logger.WithField("products", len(products)).Debug("catalog products fetched")
	return products, nil
}

var _ domain.Catalog = (*HTTPCatalog)(nil)
