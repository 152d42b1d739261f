package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"news-hand/models"
	"news-hand/providers/huggingface"
	"news-hand/repository"
)

// countingScorer zählt die Aufrufe und antwortet mit festem Score oder
// Fehler.
type countingScorer struct {
	attempts int
	score    float64
	err      error
}

func (s *countingScorer) Score(ctx context.Context, text string) (float64, error) {
	s.attempts++
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

func newBiasService(t *testing.T, scorer Scorer) (*BiasService, *repository.ArticleRepository) {
	t.Helper()
	repo := repository.NewArticleRepository(openTestDB(t))
	svc := NewBiasService(ingestConfig(), repo, scorer, zap.NewNop())
	svc.RetryBackoff = 20 * time.Millisecond
	return svc, repo
}

// bodyServer liefert einen festen Artikeltext für jede Abruf-URL.
func bodyServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func storedArticle(t *testing.T, repo *repository.ArticleRepository, link, s3url string) models.Article {
	t.Helper()
	article := models.Article{
		Title: "Stored article",
		Link:  link,
		Tags:  "technology",
		S3Url: s3url,
	}
	_, err := repo.CreateOrReconcile(context.Background(), &article)
	require.NoError(t, err)
	return article
}

func TestProcessArticlesMixedBatch(t *testing.T) {
	server := bodyServer(t, "Title: X\n\nDescription: Y\n")
	scorer := &countingScorer{score: 0.42}
	svc, repo := newBiasService(t, scorer)
	ctx := context.Background()

	valid := storedArticle(t, repo, "https://example.com/valid", server.URL)
	missing := storedArticle(t, repo, "https://example.com/missing", "")

	result, err := svc.ProcessArticles(ctx, []models.Article{missing, valid})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, missing.ID.String(), result.Failures[0].ID)
	assert.Equal(t, "missing s3 url", result.Failures[0].Reason)

	scored, err := repo.FindByLink(ctx, "https://example.com/valid")
	require.NoError(t, err)
	assert.InDelta(t, 0.42, scored.Bias, 1e-9)
}

func TestProcessArticlesEmptyBatch(t *testing.T) {
	svc, _ := newBiasService(t, &countingScorer{})

	result, err := svc.ProcessArticles(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.BiasRun{Failures: []models.BiasFailure{}}, result)
}

func TestProcessArticlesFailsWithoutDatabase(t *testing.T) {
	svc := NewBiasService(ingestConfig(), repository.NewArticleRepository(nil), &countingScorer{}, zap.NewNop())

	_, err := svc.ProcessArticles(context.Background(), []models.Article{{}})
	assert.ErrorIs(t, err, repository.ErrDatabaseUnavailable)
}

func TestProcessArticlesReportsDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	svc, repo := newBiasService(t, &countingScorer{score: 0.5})
	article := storedArticle(t, repo, "https://example.com/gone", server.URL)

	result, err := svc.ProcessArticles(context.Background(), []models.Article{article})
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason, "download failed:")
	assert.Equal(t, 0, result.Updated)
}

func TestProcessArticlesReportsEmptyDescription(t *testing.T) {
	server := bodyServer(t, "Title: X\n\nDescription:\n")
	svc, repo := newBiasService(t, &countingScorer{score: 0.5})
	article := storedArticle(t, repo, "https://example.com/empty", server.URL)

	result, err := svc.ProcessArticles(context.Background(), []models.Article{article})
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "description is empty", result.Failures[0].Reason)
}

func TestProcessArticlesReportsTerminalInferenceFailure(t *testing.T) {
	server := bodyServer(t, "Title: X\n\nDescription: Y\n")
	scorer := &countingScorer{err: &huggingface.InferenceError{StatusCode: 503}}
	svc, repo := newBiasService(t, scorer)
	article := storedArticle(t, repo, "https://example.com/inf", server.URL)

	result, err := svc.ProcessArticles(context.Background(), []models.Article{article})
	require.NoError(t, err, "item failures never abort the batch")
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason, "inference invocation failed:")
	assert.Equal(t, 3, scorer.attempts, "retryable failure exhausts all attempts")
}

func TestScoreWithRetryBoundAndBackoff(t *testing.T) {
	scorer := &countingScorer{err: &huggingface.InferenceError{StatusCode: 503}}
	svc, _ := newBiasService(t, scorer)

	start := time.Now()
	_, err := svc.scoreWithRetry(context.Background(), "text")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 3, scorer.attempts)
	// Wartezeiten: backoff vor dem 2. Versuch, das Doppelte vor dem 3.
	assert.GreaterOrEqual(t, elapsed, 3*svc.RetryBackoff)
}

func TestScoreWithRetrySingleAttemptOnClientError(t *testing.T) {
	scorer := &countingScorer{err: &huggingface.InferenceError{StatusCode: 400}}
	svc, _ := newBiasService(t, scorer)

	_, err := svc.scoreWithRetry(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, 1, scorer.attempts, "non-retryable failure is not repeated")
}

func TestScoreWithRetryAbortsOnContextCancel(t *testing.T) {
	scorer := &countingScorer{err: &huggingface.InferenceError{StatusCode: 503}}
	svc, _ := newBiasService(t, scorer)
	svc.RetryBackoff = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := svc.scoreWithRetry(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancellation interrupts the backoff wait")
}

func TestExtractDescription(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"marker present", "Title: X\n\nDescription: Y\n", "Y"},
		{"marker case-insensitive", "title: X\n\nDESCRIPTION:   spaced  ", "spaced"},
		{"no marker", "  just some text  ", "just some text"},
		{"crlf normalized", "Title: X\r\n\r\nDescription: Y\r\n", "Y"},
		{"empty body", "   ", ""},
		{"marker with empty rest", "Title: X\n\nDescription:", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractDescription([]byte(tc.body)))
		})
	}
}
