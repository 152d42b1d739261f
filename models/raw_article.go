package models

// RawArticle ist ein vom Provider bereits normalisierter Artikel, so wie er
// aus der Such-API kommt — noch ohne Datenbank-Identität.
type RawArticle struct {
	Title       string
	Description string
	Content     string
	Link        string
	ImageURL    string
	Author      string
	PublishedAt string
}
