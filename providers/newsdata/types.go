package newsdata

import "strings"

// searchResponse deckt die Antwortformate beider API-Generationen ab:
// newsdata.io liefert die Artikel unter "results", newsapi.org unter
// "articles". Ist beides belegt, gewinnt "results".
type searchResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	NextPage     string       `json:"nextPage"`
	Results      []apiArticle `json:"results"`
	Articles     []apiArticle `json:"articles"`
}

func (r searchResponse) items() []apiArticle {
	if len(r.Results) > 0 {
		return r.Results
	}
	return r.Articles
}

// apiArticle trägt die Feld-Aliase beider Formate; die Zugriffsmethoden
// legen die Vorrang-Reihenfolge fest.
type apiArticle struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	URLToImage  string   `json:"urlToImage"`
	Content     string   `json:"content"`
	PubDate     string   `json:"pubDate"`
	PublishedAt string   `json:"publishedAt"`
	Creator     []string `json:"creator"`
	Author      string   `json:"author"`
}

// articleURL bevorzugt das kanonische "url"-Feld vor dem Alias "link".
func (a apiArticle) articleURL() string {
	if url := strings.TrimSpace(a.URL); url != "" {
		return url
	}
	return strings.TrimSpace(a.Link)
}

// imageLink bevorzugt "urlToImage" vor "image_url".
func (a apiArticle) imageLink() string {
	if image := strings.TrimSpace(a.URLToImage); image != "" {
		return image
	}
	return strings.TrimSpace(a.ImageURL)
}

// primaryAuthor nimmt den ersten nicht-leeren Eintrag der Creator-Liste,
// sonst das ältere Einzel-Autor-Feld.
func (a apiArticle) primaryAuthor() string {
	for _, creator := range a.Creator {
		if name := strings.TrimSpace(creator); name != "" {
			return name
		}
	}
	return strings.TrimSpace(a.Author)
}

// publicationDate bevorzugt "pubDate" vor "publishedAt".
func (a apiArticle) publicationDate() string {
	if date := strings.TrimSpace(a.PubDate); date != "" {
		return date
	}
	return strings.TrimSpace(a.PublishedAt)
}
