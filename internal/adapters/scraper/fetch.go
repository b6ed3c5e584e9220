package scraper

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"recipebox/internal/infra/metrics"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"

	minBodyBytes    = 100
	maxRedirects    = 10
	breakerFailures = 5
)

var (
	// ErrEmptyResponse: сервер вернул пустую или слишком короткую страницу.
	ErrEmptyResponse = errors.New("пустой или некорректный ответ сервера")
	// ErrResponseTooLarge: страница больше допустимого размера.
	ErrResponseTooLarge = errors.New("страница слишком большая")
)

// FetchError описывает неудачную загрузку страницы.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("не удалось загрузить страницу %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// FetchConfig задаёт таймауты и лимиты загрузчика.
type FetchConfig struct {
	Timeout         time.Duration
	FallbackTimeout time.Duration
	MaxBody         int64
}

// HTTPFetcher скачивает страницы через основной клиент, а при его отказе через резервный,
// который следует редиректам и не проверяет TLS-сертификат.
type HTTPFetcher struct {
	primary  *http.Client
	fallback *http.Client
	breaker  *gobreaker.CircuitBreaker
	maxBody  int64
	log      zerolog.Logger
}

// NewFetcher создаёт загрузчик с двумя независимыми клиентами.
func NewFetcher(cfg FetchConfig, logger zerolog.Logger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = cfg.Timeout
	}
	primary := &http.Client{Timeout: cfg.Timeout}
	fallback := &http.Client{
		Timeout: cfg.FallbackTimeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // резервный путь для сайтов с битой цепочкой
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("больше %d редиректов", maxRedirects)
			}
			return nil
		},
	}
	return newFetcher(primary, fallback, cfg.MaxBody, logger)
}

func newFetcher(primary, fallback *http.Client, maxBody int64, logger zerolog.Logger) *HTTPFetcher {
	if maxBody <= 0 {
		maxBody = 5 << 20
	}
	f := &HTTPFetcher{primary: primary, fallback: fallback, maxBody: maxBody, log: logger}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scraper-primary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("scraper: circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return f
}

// Fetch возвращает HTML страницы. Попытки выполняются последовательно.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	body, primaryErr := f.fetchPrimary(ctx, rawURL)
	if primaryErr != nil {
		if ctx.Err() != nil {
			return "", &FetchError{URL: rawURL, Cause: ctx.Err()}
		}
		f.log.Warn().Err(primaryErr).Str("url", rawURL).Msg("scraper: primary fetch failed, trying fallback")
		var fallbackErr error
		body, fallbackErr = f.do(ctx, f.fallback, "fetch_fallback", rawURL)
		if fallbackErr != nil {
			return "", &FetchError{
				URL:   rawURL,
				Cause: fmt.Errorf("основной клиент: %v; резервный клиент: %w", primaryErr, fallbackErr),
			}
		}
	}
	if len(body) < minBodyBytes {
		return "", &FetchError{URL: rawURL, Cause: ErrEmptyResponse}
	}
	return string(body), nil
}

func (f *HTTPFetcher) fetchPrimary(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := f.breaker.Execute(func() (interface{}, error) {
		return f.do(ctx, f.primary, "fetch_primary", rawURL)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (f *HTTPFetcher) do(ctx context.Context, client *http.Client, operation, rawURL string) (body []byte, err error) {
	target := "unknown"
	if u, perr := url.Parse(rawURL); perr == nil && u.Host != "" {
		target = u.Hostname()
	}
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("scraper", operation, target, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("сборка запроса: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("чтение ответа: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}
