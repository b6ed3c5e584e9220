package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"recipebox/internal/domain"
	"recipebox/internal/infra/metrics"
)

// Service импортирует черновик рецепта с поддерживаемого сайта.
type Service struct {
	fetcher     domain.Fetcher
	extractor   domain.Extractor
	allowedHost string
	log         zerolog.Logger
}

// NewService создаёт сервис импорта.
func NewService(fetcher domain.Fetcher, extractor domain.Extractor, allowedHost string, logger zerolog.Logger) *Service {
	return &Service{
		fetcher:     fetcher,
		extractor:   extractor,
		allowedHost: strings.ToLower(allowedHost),
		log:         logger,
	}
}

// AllowedHost возвращает поддерживаемый домен.
func (s *Service) AllowedHost() string { return s.allowedHost }

// ValidateSourceURL проверяет, что адрес абсолютный http(s) и ведёт на поддерживаемый домен
// или его поддомен.
func ValidateSourceURL(raw, allowedHost string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NewValidationError("url", "URL обязателен")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewValidationError("url", "некорректный URL")
	}
	host := strings.ToLower(u.Hostname())
	allowed := strings.ToLower(allowedHost)
	if host != allowed && !strings.HasSuffix(host, "."+allowed) {
		return domain.NewValidationError("url", fmt.Sprintf("поддерживаются только ссылки %s", allowed))
	}
	return nil
}

// Scrape никогда не возвращает ошибку: любой сбой превращается в конверт с success=false.
func (s *Service) Scrape(ctx context.Context, rawURL string) (result domain.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("url", rawURL).Msg("scraper: extractor panicked")
			result = domain.ScrapeResult{Success: false, Error: "не удалось разобрать страницу рецепта"}
		}
		metrics.IncScrapeResult(result.Success)
	}()

	if err := ValidateSourceURL(rawURL, s.allowedHost); err != nil {
		return s.fail(rawURL, err)
	}
	page, err := s.fetcher.Fetch(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		return s.fail(rawURL, err)
	}
	draft, err := s.extractor.Extract(page)
	if err != nil {
		return s.fail(rawURL, err)
	}
	s.log.Debug().
		Str("url", rawURL).
		Str("name", draft.Name).
		Int("ingredients_len", len(draft.Ingredients)).
		Int("instructions_len", len(draft.Instructions)).
		Msg("scraper: recipe extracted")
	return domain.ScrapeResult{Success: true, Data: &draft}
}

func (s *Service) fail(rawURL string, err error) domain.ScrapeResult {
	s.log.Error().Err(err).Str("url", rawURL).Msg("scraper: import failed")
	return domain.ScrapeResult{Success: false, Error: err.Error()}
}
