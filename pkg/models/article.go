package models

// Article is one organic web-search result as returned by the search
// upstream. Field names follow the SerpAPI response shape.
type Article struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
