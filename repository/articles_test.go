package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"news-hand/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// In-Memory-SQLite lebt pro Verbindung; der Pool muss bei einer bleiben.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Article{}))
	return db
}

func testArticle(link, tag string) *models.Article {
	return &models.Article{
		Title:   "Title for " + link,
		Link:    link,
		Tags:    tag,
		HashVal: uuid.New(),
		S3Url:   "https://s3.example.com/" + tag,
	}
}

func TestFindByLinkNotFound(t *testing.T) {
	repo := NewArticleRepository(openTestDB(t))

	_, err := repo.FindByLink(context.Background(), "https://example.com/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateOrReconcileCreatesNewRow(t *testing.T) {
	repo := NewArticleRepository(openTestDB(t))
	ctx := context.Background()

	article := testArticle("https://example.com/a", "technology")
	created, err := repo.CreateOrReconcile(ctx, article)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, article.ID)

	found, err := repo.FindByLink(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, article.ID, found.ID)
}

func TestCreateOrReconcileResolvesDuplicateLink(t *testing.T) {
	repo := NewArticleRepository(openTestDB(t))
	ctx := context.Background()

	first := testArticle("https://example.com/race", "technology")
	created, err := repo.CreateOrReconcile(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	// Zweiter Ingest desselben Links, wie beim verlorenen Rennen: gleiche
	// Link-Spalte, frische Feldwerte und URL.
	second := testArticle("https://example.com/race", "economy")
	second.Title = "Updated title"
	second.S3Url = "https://s3.example.com/fresh"

	created, err = repo.CreateOrReconcile(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	// Genau eine Zeile pro Link, mit den neuen Werten.
	var count int64
	require.NoError(t, repo.DB.Model(&models.Article{}).Where("link = ?", "https://example.com/race").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	winner, err := repo.FindByLink(ctx, "https://example.com/race")
	require.NoError(t, err)
	assert.Equal(t, first.ID, winner.ID, "row identity survives the reconcile")
	assert.Equal(t, "Updated title", winner.Title)
	assert.Equal(t, "economy", winner.Tags)
	assert.Equal(t, "https://s3.example.com/fresh", winner.S3Url)
}

func TestUpdateBias(t *testing.T) {
	repo := NewArticleRepository(openTestDB(t))
	ctx := context.Background()

	article := testArticle("https://example.com/bias", "health")
	_, err := repo.CreateOrReconcile(ctx, article)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateBias(ctx, article.ID, 0.42))

	found, err := repo.FindByLink(ctx, "https://example.com/bias")
	require.NoError(t, err)
	assert.InDelta(t, 0.42, found.Bias, 1e-9)
}

func TestFindByTagMatchesCaseInsensitively(t *testing.T) {
	repo := NewArticleRepository(openTestDB(t))
	ctx := context.Background()

	older := testArticle("https://example.com/t1", "technology")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testArticle("https://example.com/t2", "technology")
	newer.CreatedAt = time.Now()
	other := testArticle("https://example.com/c1", "climate")

	for _, a := range []*models.Article{older, newer, other} {
		_, err := repo.CreateOrReconcile(ctx, a)
		require.NoError(t, err)
	}

	articles, err := repo.FindByTag(ctx, "Technology", 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "https://example.com/t2", articles[0].Link, "newest first")

	limited, err := repo.FindByTag(ctx, "TECHNOLOGY", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := repo.FindByTag(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindForScoringSelectsSentinelRows(t *testing.T) {
	repo := NewArticleRepository(openTestDB(t))
	ctx := context.Background()

	unscored := testArticle("https://example.com/u", "technology")
	scored := testArticle("https://example.com/s", "technology")
	for _, a := range []*models.Article{unscored, scored} {
		_, err := repo.CreateOrReconcile(ctx, a)
		require.NoError(t, err)
	}
	require.NoError(t, repo.UpdateBias(ctx, scored.ID, 0.9))

	selected, err := repo.FindForScoring(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, unscored.ID, selected[0].ID)

	all, err := repo.FindForScoring(ctx, true, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := repo.FindForScoring(ctx, true, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAvailable(t *testing.T) {
	assert.False(t, (*ArticleRepository)(nil).Available())
	assert.False(t, NewArticleRepository(nil).Available())
	assert.True(t, NewArticleRepository(openTestDB(t)).Available())
}
