package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"news-hand/config"
	"news-hand/models"
	"news-hand/providers"
	"news-hand/repository"
	"news-hand/storage"
)

// topicFetchTimeout begrenzt den API-Abruf eines einzelnen Topics.
const topicFetchTimeout = 20 * time.Second

// IngestService orchestriert den Ingest: Artikel pro Topic holen, Texte ins
// S3 schreiben, Abruf-URLs ausstellen und die Metadaten per Upsert-by-Link
// in die Datenbank bringen.
type IngestService struct {
	Config    *config.Config
	Repo      *repository.ArticleRepository
	Store     storage.ObjectStore
	Logger    *zap.Logger
	Providers []providers.Provider
}

// NewIngestService erstellt eine neue Instanz des IngestService.
func NewIngestService(cfg *config.Config, repo *repository.ArticleRepository, store storage.ObjectStore, logger *zap.Logger, providers []providers.Provider) *IngestService {
	return &IngestService{
		Config:    cfg,
		Repo:      repo,
		Store:     store,
		Logger:    logger,
		Providers: providers,
	}
}

// Run führt den Ingest für alle Topics aus. Fehler innerhalb eines Topics
// sind für den ganzen Lauf fatal; bereits upgeserteter Bestand bleibt
// erhalten.
func (s *IngestService) Run(ctx context.Context, topics []string) (map[string]models.TopicSummary, error) {
	if err := s.Config.ValidateIngest(); err != nil {
		return nil, err
	}
	if !s.Repo.Available() {
		return nil, repository.ErrDatabaseUnavailable
	}

	results := make(map[string]models.TopicSummary)
	for _, topic := range topics {
		summary, err := s.RunTopic(ctx, topic)
		if err != nil {
			return nil, err
		}
		tag := strings.ToLower(strings.TrimSpace(topic))
		if tag == "" {
			continue
		}
		results[tag] = summary
	}

	return results, nil
}

// RunTopic verarbeitet ein einzelnes Topic und zählt stored/updated/skipped.
func (s *IngestService) RunTopic(ctx context.Context, topic string) (models.TopicSummary, error) {
	var summary models.TopicSummary

	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return summary, fmt.Errorf("topic cannot be empty")
	}

	log := s.Logger.With(zap.String("topic", trimmed))

	articles, err := s.fetchCandidates(ctx, trimmed)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch news for topic %s: %w", trimmed, err)
	}
	log.Info("Kandidaten geladen", zap.Int("candidates", len(articles)))

	tag := strings.ToLower(trimmed)
	for index, article := range articles {
		if s.Config.MaxArticles > 0 && index >= s.Config.MaxArticles {
			break
		}

		link := strings.TrimSpace(article.Link)
		title := strings.TrimSpace(article.Title)
		if link == "" || title == "" {
			summary.Skipped++
			continue
		}

		if err := s.upsertArticle(ctx, tag, article, &summary); err != nil {
			return summary, fmt.Errorf("topic %s: %w", trimmed, err)
		}
	}

	log.Info("Topic verarbeitet",
		zap.Int("stored", summary.Stored),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// fetchCandidates fragt alle Provider unter dem Topic-Sub-Timeout ab und
// hängt die Ergebnisse in Provider-Reihenfolge aneinander.
func (s *IngestService) fetchCandidates(ctx context.Context, topic string) ([]models.RawArticle, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, topicFetchTimeout)
	defer cancel()

	var articles []models.RawArticle
	for _, provider := range s.Providers {
		found, err := provider.Search(fetchCtx, topic)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", provider.Name(), err)
		}
		articles = append(articles, found...)
	}
	return articles, nil
}

// upsertArticle bringt einen Kandidaten in die Datenbank: Text hochladen,
// URL ausstellen und je nach Bestand anlegen oder aktualisieren.
func (s *IngestService) upsertArticle(ctx context.Context, tag string, raw models.RawArticle, summary *models.TopicSummary) error {
	link := strings.TrimSpace(raw.Link)
	title := strings.TrimSpace(raw.Title)
	textBody := buildArticleText(raw)

	existing, err := s.Repo.FindByLink(ctx, link)
	if err == nil {
		// Update-Pfad: hash_val bleibt stabil, nur Text und URL werden
		// erneuert.
		if existing.HashVal == uuid.Nil {
			hash, err := uuid.NewRandom()
			if err != nil {
				return fmt.Errorf("failed to generate hash for existing article: %w", err)
			}
			existing.HashVal = hash
		}

		key := objectKey(tag, existing.HashVal)
		presigned, err := s.storeArticleText(ctx, key, textBody)
		if err != nil {
			return err
		}

		existing.Title = title
		existing.Description = raw.Description
		existing.ImageURL = raw.ImageURL
		existing.Author = raw.Author
		existing.Tags = tag
		existing.S3Url = presigned

		if err := s.Repo.Save(ctx, existing); err != nil {
			return fmt.Errorf("failed to update article: %w", err)
		}

		summary.Updated++
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db lookup failed: %w", err)
	}

	hash, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to generate hash: %w", err)
	}

	key := objectKey(tag, hash)
	presigned, err := s.storeArticleText(ctx, key, textBody)
	if err != nil {
		return err
	}

	record := models.Article{
		Title:       title,
		Description: raw.Description,
		Link:        link,
		ImageURL:    raw.ImageURL,
		Author:      raw.Author,
		Tags:        tag,
		HashVal:     hash,
		S3Url:       presigned,
		Bias:        0,
	}

	created, err := s.Repo.CreateOrReconcile(ctx, &record)
	if err != nil {
		return fmt.Errorf("failed to store article: %w", err)
	}
	if created {
		summary.Stored++
	} else {
		summary.Updated++
	}
	return nil
}

// storeArticleText schreibt den Text ins S3 und stellt die Abruf-URL aus.
// Beide Fehler sind für den Lauf fatal; Objekt-Writes sind idempotent und
// werden beim nächsten Lauf ohnehin wiederholt.
func (s *IngestService) storeArticleText(ctx context.Context, key, body string) (string, error) {
	if err := s.Store.UploadArticleText(ctx, key, body); err != nil {
		return "", fmt.Errorf("failed to upload article: %w", err)
	}
	presigned, err := s.Store.PresignArticle(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presigned, nil
}

// objectKey leitet den S3-Schlüssel deterministisch aus Tag und hash_val ab.
func objectKey(tag string, hash uuid.UUID) string {
	return fmt.Sprintf("%s:%s.txt", tag, hash.String())
}

// buildArticleText rendert den Text, der ins S3 geschrieben wird. Fehlt die
// Beschreibung, greift der Rohinhalt, danach ein fester Platzhalter.
func buildArticleText(raw models.RawArticle) string {
	title := strings.TrimSpace(raw.Title)
	description := strings.TrimSpace(raw.Description)

	if description == "" {
		description = strings.TrimSpace(raw.Content)
	}
	if description == "" {
		description = "Description unavailable."
	}

	return fmt.Sprintf("Title: %s\n\nDescription: %s\n", title, description)
}
