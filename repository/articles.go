package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"news-hand/models"
)

// ErrDatabaseUnavailable meldet, dass keine offene Datenbankverbindung
// vorliegt.
var ErrDatabaseUnavailable = errors.New("database connection unavailable")

// ArticleRepository kapselt den Datenbankzugriff auf Artikel. Die
// Eindeutigkeit des Links wird nicht per Lock erzwungen, sondern vom
// Unique-Index der Datenbank; das Repository reagiert auf die Verletzung
// (siehe CreateOrReconcile).
//
// Voraussetzung: gorm muss mit TranslateError geöffnet sein, damit
// Constraint-Verletzungen als gorm.ErrDuplicatedKey ankommen.
type ArticleRepository struct {
	DB *gorm.DB
}

// NewArticleRepository erstellt ein Repository über der gegebenen Verbindung.
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{DB: db}
}

// Available meldet, ob eine Verbindung vorliegt.
func (r *ArticleRepository) Available() bool {
	return r != nil && r.DB != nil
}

// FindByLink sucht den Artikel mit exakt diesem Link. Nicht gefunden wird
// als gorm.ErrRecordNotFound gemeldet.
func (r *ArticleRepository) FindByLink(ctx context.Context, link string) (*models.Article, error) {
	var article models.Article
	if err := r.DB.WithContext(ctx).Where("link = ?", link).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// Save schreibt alle Felder eines bestehenden Artikels zurück.
func (r *ArticleRepository) Save(ctx context.Context, article *models.Article) error {
	return r.DB.WithContext(ctx).Save(article).Error
}

// CreateOrReconcile legt den Artikel an. Verliert der Insert das Rennen
// gegen einen parallelen Ingest desselben Links, wird die inzwischen
// vorhandene Zeile gelesen, mit den neuen Feldwerten samt frischer
// Abruf-URL überschrieben und gespeichert. created meldet, ob wirklich eine
// neue Zeile entstanden ist.
func (r *ArticleRepository) CreateOrReconcile(ctx context.Context, article *models.Article) (created bool, err error) {
	err = r.DB.WithContext(ctx).Create(article).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	var winner models.Article
	if lookupErr := r.DB.WithContext(ctx).Where("link = ?", article.Link).First(&winner).Error; lookupErr != nil {
		return false, fmt.Errorf("failed to load existing duplicate: %w", lookupErr)
	}

	winner.Title = article.Title
	winner.Description = article.Description
	winner.ImageURL = article.ImageURL
	winner.Author = article.Author
	winner.Tags = article.Tags
	winner.HashVal = article.HashVal
	winner.S3Url = article.S3Url

	if saveErr := r.DB.WithContext(ctx).Save(&winner).Error; saveErr != nil {
		return false, fmt.Errorf("failed to update duplicate article: %w", saveErr)
	}

	*article = winner
	return false, nil
}

// UpdateBias schreibt den Score der Zeile mit dieser ID.
func (r *ArticleRepository) UpdateBias(ctx context.Context, id uuid.UUID, score float64) error {
	return r.DB.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Update("bias", score).Error
}

// FindByTag liefert die Artikel eines Tags, neueste zuerst. Der Vergleich
// ist case-insensitiv; limit 0 bedeutet unbegrenzt.
func (r *ArticleRepository) FindByTag(ctx context.Context, tag string, limit int) ([]models.Article, error) {
	var articles []models.Article
	lowered := strings.ToLower(strings.TrimSpace(tag))
	if lowered == "" {
		return articles, nil
	}

	query := r.DB.WithContext(ctx).Where("LOWER(tags) = ?", lowered).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// FindForScoring wählt die Kandidaten fürs Bias-Scoring: standardmäßig alle
// mit dem Sentinel-Score 0, unter force alle. limit > 0 begrenzt die Menge.
func (r *ArticleRepository) FindForScoring(ctx context.Context, force bool, limit int) ([]models.Article, error) {
	var articles []models.Article
	query := r.DB.WithContext(ctx)
	if !force {
		query = query.Where("bias = ?", 0)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}
