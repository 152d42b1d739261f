package models

// TopicSummary zählt das Ergebnis eines Ingest-Laufs für ein Topic.
// Die Werte werden nicht persistiert.
type TopicSummary struct {
	Stored  int `json:"stored"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// BiasFailure beschreibt einen einzelnen fehlgeschlagenen Artikel eines
// Scoring-Laufs.
type BiasFailure struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// BiasRun fasst einen Scoring-Lauf zusammen. Fehler einzelner Artikel
// brechen den Lauf nie ab, sie landen in Failures.
type BiasRun struct {
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Total    int           `json:"total"`
	Failures []BiasFailure `json:"failed_items"`
}
