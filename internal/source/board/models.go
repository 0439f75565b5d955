package board

// listingResponse is the board listing endpoint payload.
type listingResponse struct {
	Data struct {
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
		After string `json:"after"`
	} `json:"data"`
}

type postData struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	SelfText          string  `json:"selftext"`
	Author            string  `json:"author"`
	Community         string  `json:"community"`
	Score             int     `json:"score"`
	NumComments       int     `json:"num_comments"`
	CreatedUTC        float64 `json:"created_utc"`
	RemovedByCategory string  `json:"removed_by_category"`
	Locked            bool    `json:"locked"`
	Stickied          bool    `json:"stickied"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
