package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"news-hand/config"
	"news-hand/models"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Fetcher implementiert das Provider-Interface für die News-Such-API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen News-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "newsdata"
}

// Search holt die Artikel zu einem Topic und normalisiert sie.
func (f *Fetcher) Search(ctx context.Context, topic string) ([]models.RawArticle, error) {
	log := f.Logger.With(zap.String("topic", topic))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Config.NewsBaseURL, nil)
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	query.Set("q", topic)
	query.Set("apikey", f.Config.NewsAPIKey)
	if page := strings.TrimSpace(f.Config.NewsPage); page != "" {
		query.Set("page", page)
	}
	req.URL.RawQuery = query.Encode()

	log.Debug("Rufe News-API auf", zap.String("url", f.Config.NewsBaseURL))

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from news API", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Status != "" && payload.Status != "success" && payload.Status != "ok" {
		return nil, fmt.Errorf("news API returned status %q", payload.Status)
	}

	items := payload.items()
	articles := make([]models.RawArticle, 0, len(items))
	for _, item := range items {
		articles = append(articles, models.RawArticle{
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			Link:        item.articleURL(),
			ImageURL:    item.imageLink(),
			Author:      item.primaryAuthor(),
			PublishedAt: item.publicationDate(),
		})
	}

	log.Info("News-API-Suche abgeschlossen", zap.Int("found_articles", len(articles)))
	return articles, nil
}
