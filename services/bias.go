package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"news-hand/config"
	"news-hand/models"
	"news-hand/providers/huggingface"
	"news-hand/repository"
)

// Scorer bewertet einen Text mit einem Bias-Score. Implementiert vom
// Hugging-Face-Client.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// BiasService orchestriert das Scoring: Artikeltext über die Abruf-URL
// laden, Beschreibung extrahieren, Endpoint mit begrenzten Retries aufrufen
// und den Score zurückschreiben. Der Lauf ist nicht transaktional — jeder
// Artikel wird unabhängig verarbeitet, ein Fehler bricht den Batch nie ab.
type BiasService struct {
	Config *config.Config
	Repo   *repository.ArticleRepository
	Scorer Scorer
	Logger *zap.Logger

	// HTTPClient lädt die Artikeltexte über ihre Abruf-URLs.
	HTTPClient *http.Client

	// MaxAttempts und RetryBackoff steuern die Retry-Schleife für
	// vorübergehende Inference-Fehler.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// NewBiasService erstellt einen BiasService mit den Standard-Retry-Werten
// (3 Versuche, Backoff 1s, 2s).
func NewBiasService(cfg *config.Config, repo *repository.ArticleRepository, scorer Scorer, logger *zap.Logger) *BiasService {
	return &BiasService{
		Config:       cfg,
		Repo:         repo,
		Scorer:       scorer,
		Logger:       logger,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		MaxAttempts:  3,
		RetryBackoff: time.Second,
	}
}

// ProcessArticles bewertet die übergebenen Artikel und zählt das Ergebnis.
func (s *BiasService) ProcessArticles(ctx context.Context, articles []models.Article) (models.BiasRun, error) {
	result := models.BiasRun{
		Total:    len(articles),
		Failures: make([]models.BiasFailure, 0),
	}

	if !s.Repo.Available() {
		return result, repository.ErrDatabaseUnavailable
	}
	if len(articles) == 0 {
		s.Logger.Info("Keine Artikel fürs Bias-Scoring übergeben")
		return result, nil
	}

	s.Logger.Info("Starte Bias-Scoring", zap.Int("articles", len(articles)))

	for _, article := range articles {
		log := s.Logger.With(zap.String("article_id", article.ID.String()))

		if strings.TrimSpace(article.S3Url) == "" {
			s.recordFailure(&result, article, "missing s3 url")
			log.Warn("Artikel ohne Abruf-URL übersprungen")
			continue
		}

		description, err := s.downloadArticleText(ctx, article.S3Url)
		if err != nil {
			s.recordFailure(&result, article, fmt.Sprintf("download failed: %v", err))
			log.Warn("Artikeltext nicht ladbar", zap.Error(err))
			continue
		}

		if description == "" {
			s.recordFailure(&result, article, "description is empty")
			log.Warn("Artikeltext ohne Beschreibung übersprungen")
			continue
		}

		score, err := s.scoreWithRetry(ctx, description)
		if err != nil {
			s.recordFailure(&result, article, fmt.Sprintf("inference invocation failed: %v", err))
			log.Warn("Inference endgültig fehlgeschlagen", zap.Error(err))
			continue
		}

		if err := s.Repo.UpdateBias(ctx, article.ID, score); err != nil {
			s.recordFailure(&result, article, fmt.Sprintf("failed to update bias: %v", err))
			log.Warn("Score nicht speicherbar", zap.Error(err))
			continue
		}

		result.Updated++
		log.Info("Bias-Score gespeichert", zap.Float64("score", score))
	}

	s.Logger.Info("Bias-Scoring abgeschlossen",
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total))
	return result, nil
}

func (s *BiasService) recordFailure(result *models.BiasRun, article models.Article, reason string) {
	result.Failed++
	result.Failures = append(result.Failures, models.BiasFailure{
		ID:     article.ID.String(),
		Title:  article.Title,
		Reason: reason,
	})
}

// scoreWithRetry ruft den Scorer mit bis zu MaxAttempts Versuchen auf.
// Gewartet wird nur nach einem vorübergehenden Fehler, solange Versuche
// übrig sind: Backoff, dann das Doppelte. Ein abgebrochener Context beendet
// das Warten sofort.
func (s *BiasService) scoreWithRetry(ctx context.Context, text string) (float64, error) {
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		score, err := s.Scorer.Score(ctx, text)
		if err == nil {
			return score, nil
		}

		var infErr *huggingface.InferenceError
		if errors.As(err, &infErr) && infErr.Retryable() && attempt < s.MaxAttempts {
			wait := s.RetryBackoff * time.Duration(1<<(attempt-1))
			s.Logger.Info("Wiederhole Inference-Aufruf",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", s.MaxAttempts),
				zap.Duration("wait", wait),
				zap.Int("status", infErr.StatusCode))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			continue
		}

		return 0, err
	}

	return 0, fmt.Errorf("failed to invoke inference endpoint after %d attempts", s.MaxAttempts)
}

// downloadArticleText lädt den Artikeltext über die Abruf-URL und gibt die
// extrahierte Beschreibung zurück.
func (s *BiasService) downloadArticleText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d downloading article", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return extractDescription(body), nil
}

// extractDescription nimmt alles hinter dem ersten case-insensitiven
// "description:"-Marker; fehlt er, den ganzen getrimmten Text.
func extractDescription(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	const markerLower = "description:"

	lower := strings.ToLower(normalized)
	idx := strings.Index(lower, markerLower)
	if idx == -1 {
		return strings.TrimSpace(normalized)
	}

	return strings.TrimSpace(normalized[idx+len(markerLower):])
}
