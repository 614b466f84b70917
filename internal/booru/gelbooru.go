package booru

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GelbooruBaseURL is the public Gelbooru instance.
const GelbooruBaseURL = "https://gelbooru.com"

// gelbooruMaxLimit is the largest page size the API accepts.
const gelbooruMaxLimit = 100

// gelbooruPost mirrors the fields of the dapi post listing the crawler reads.
type gelbooruPost struct {
	ID      int64  `json:"id"`
	FileURL string `json:"file_url"`
	Rating  string `json:"rating"`
	Tags    string `json:"tags"`
}

// gelbooruResponse is the json=1 envelope. Empty results omit "post".
type gelbooruResponse struct {
	Attributes struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Count  int `json:"count"`
	} `json:"@attributes"`
	Post []gelbooruPost `json:"post"`
}

// gelbooruAPI fetches pages from a Gelbooru instance.
type gelbooruAPI struct {
	baseURL string
	userID  string
	apiKey  string
}

func (a *gelbooruAPI) name() string {
	return "gelbooru"
}

// firstPage is 0; Gelbooru's pid parameter starts at zero.
func (a *gelbooruAPI) firstPage() int {
	return 0
}

func (a *gelbooruAPI) pageURL(query string, page, limit int) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u = u.JoinPath("index.php")

	q := url.Values{}
	q.Set("page", "dapi")
	q.Set("s", "post")
	q.Set("q", "index")
	q.Set("json", "1")
	q.Set("tags", query)
	q.Set("pid", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(min(limit, gelbooruMaxLimit)))
	if a.userID != "" && a.apiKey != "" {
		q.Set("user_id", a.userID)
		q.Set("api_key", a.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *gelbooruAPI) fetchPage(ctx context.Context, client *http.Client, query string, page, limit int) ([]Post, error) {
	pageURL, err := a.pageURL(query, page, limit)
	if err != nil {
		return nil, err
	}

	var raw gelbooruResponse
	if err := getJSON(ctx, client, pageURL, &raw); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(raw.Post))
	for _, p := range raw.Post {
		posts = append(posts, Post{
			ID:      p.ID,
			FileURL: p.FileURL,
			Rating:  p.Rating,
			// Gelbooru does not categorise tags in the listing.
			Tags: map[string][]string{
				"general": splitTags(p.Tags),
			},
		})
	}
	return posts, nil
}
