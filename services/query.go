package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"news-hand/config"
	"news-hand/models"
	"news-hand/repository"
)

// ScoringIncompleteError meldet, dass beim synchronen Query-Flow nicht alle
// frisch eingesammelten Artikel bewertet werden konnten. Anders als beim
// Standard-Scoring macht das hier die ganze Anfrage kaputt; die Einzelfehler
// hängen dran.
type ScoringIncompleteError struct {
	Failures []models.BiasFailure
}

func (e *ScoringIncompleteError) Error() string {
	return "failed to score bias for all articles"
}

// QueryService verkettet Ingest und Scoring für ein einzelnes Ad-hoc-Topic
// zu einem synchronen Roundtrip.
type QueryService struct {
	Config *config.Config
	Repo   *repository.ArticleRepository
	Ingest *IngestService
	Bias   *BiasService
	Logger *zap.Logger
}

// NewQueryService erstellt eine neue Instanz des QueryService.
func NewQueryService(cfg *config.Config, repo *repository.ArticleRepository, ingest *IngestService, bias *BiasService, logger *zap.Logger) *QueryService {
	return &QueryService{
		Config: cfg,
		Repo:   repo,
		Ingest: ingest,
		Bias:   bias,
		Logger: logger,
	}
}

// Run sammelt das Topic ein, bewertet genau die frisch gespeicherten
// Artikel und liefert den aufgefrischten Bestand zurück. Fatale
// Ingest-Fehler und jeder einzelne Scoring-Fehler schlagen als Fehler der
// gesamten Anfrage durch.
func (q *QueryService) Run(ctx context.Context, topic string) ([]models.Article, error) {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	log := q.Logger.With(zap.String("topic", trimmed))
	log.Info("Starte On-Demand-Query")

	if _, err := q.Ingest.Run(ctx, []string{trimmed}); err != nil {
		return nil, fmt.Errorf("failed to fetch news for topic %s: %w", trimmed, err)
	}

	limit := q.Config.MaxArticles
	articles, err := q.Repo.FindByTag(ctx, trimmed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for topic %s: %w", trimmed, err)
	}

	result, err := q.Bias.ProcessArticles(ctx, articles)
	if err != nil {
		return nil, fmt.Errorf("failed to score bias for topic %s: %w", trimmed, err)
	}
	if result.Failed > 0 {
		return nil, &ScoringIncompleteError{Failures: result.Failures}
	}

	// Neu laden, damit die gerade geschriebenen Scores in der Antwort stehen.
	articles, err = q.Repo.FindByTag(ctx, trimmed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh articles for topic %s: %w", trimmed, err)
	}

	log.Info("On-Demand-Query abgeschlossen", zap.Int("articles", len(articles)))
	return articles, nil
}
