package devpress

// article is one element of the tag-search response.
type article struct {
	ID                     int64  `json:"id"`
	Title                  string `json:"title"`
	Description            string `json:"description"`
	BodyMarkdown           string `json:"body_markdown"`
	PublishedAt            string `json:"published_at"`
	PositiveReactionsCount int    `json:"positive_reactions_count"`
	CommentsCount          int    `json:"comments_count"`
	Archived               bool   `json:"archived"`
	User                   struct {
		Username string `json:"username"`
	} `json:"user"`
}
