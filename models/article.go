package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Article repräsentiert einen eingesammelten News-Artikel samt Bias-Score.
// Pro Link existiert höchstens eine Zeile; der Link ist der fachliche
// Schlüssel für das Upsert.
type Article struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at"`

	Title       string `gorm:"type:varchar(255)" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Link        string `gorm:"type:varchar(255);uniqueIndex" json:"link"`
	ImageURL    string `gorm:"type:varchar(255)" json:"image_url"`
	Author      string `gorm:"type:varchar(255)" json:"author"`

	// Tags ist das kleingeschriebene Topic, unter dem der Artikel
	// eingesammelt wurde.
	Tags string `gorm:"type:varchar(255);index" json:"tags"`

	// HashVal bestimmt den S3-Objektschlüssel und bleibt über alle Updates
	// eines Links hinweg stabil.
	HashVal uuid.UUID `gorm:"type:uuid" json:"hash_val"`

	// S3Url ist die zeitlich begrenzte Abruf-URL; sie wird bei jedem
	// erneuten Ingest frisch ausgestellt.
	S3Url string `gorm:"type:text" json:"s3_url"`

	// Bias ist der Score des Inference-Endpoints. 0 bedeutet zugleich
	// "noch nicht bewertet" und "mit exakt 0 bewertet"; die Standard-Auswahl
	// fürs Scoring filtert auf bias = 0 und bewertet Null-Scores daher erneut.
	Bias float64 `json:"bias"`

	IsActivated bool `gorm:"default:true" json:"is_activated"`
}

// TableName gibt explizit den Tabellennamen an.
func (Article) TableName() string {
	return "articles"
}

// BeforeCreate vergibt die ID vor dem Insert.
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}
