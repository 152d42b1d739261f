package providers

import (
	"context"

	"news-hand/models"
)

// Provider ist das Interface, das jede Artikel-Quelle implementieren muss.
type Provider interface {
	// Search holt die Artikel zu einem Topic und gibt sie in Quell-Reihenfolge
	// als normalisierte RawArticle zurück.
	Search(ctx context.Context, topic string) ([]models.RawArticle, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "newsdata").
	Name() string
}
