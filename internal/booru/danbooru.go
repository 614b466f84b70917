package booru

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DanbooruBaseURL is the public Danbooru instance.
const DanbooruBaseURL = "https://danbooru.donmai.us"

// danbooruMaxLimit is the largest page size the API accepts.
const danbooruMaxLimit = 200

// danbooruPost mirrors the fields of /posts.json the crawler reads.
type danbooruPost struct {
	ID                 int64  `json:"id"`
	FileURL            string `json:"file_url"`
	LargeFileURL       string `json:"large_file_url"`
	FileExt            string `json:"file_ext"`
	Rating             string `json:"rating"`
	TagStringGeneral   string `json:"tag_string_general"`
	TagStringCharacter string `json:"tag_string_character"`
	TagStringCopyright string `json:"tag_string_copyright"`
	TagStringArtist    string `json:"tag_string_artist"`
	TagStringMeta      string `json:"tag_string_meta"`
	IsBanned           bool   `json:"is_banned"`
	IsDeleted          bool   `json:"is_deleted"`
}

// danbooruAPI fetches pages from a Danbooru instance.
type danbooruAPI struct {
	baseURL string
	login   string
	apiKey  string
}

func (a *danbooruAPI) name() string {
	return "danbooru"
}

// firstPage is 1; Danbooru pages are numbered from one.
func (a *danbooruAPI) firstPage() int {
	return 1
}

func (a *danbooruAPI) pageURL(query string, page, limit int) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u = u.JoinPath("posts.json")

	q := url.Values{}
	q.Set("tags", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(min(limit, danbooruMaxLimit)))
	if a.login != "" && a.apiKey != "" {
		q.Set("login", a.login)
		q.Set("api_key", a.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *danbooruAPI) fetchPage(ctx context.Context, client *http.Client, query string, page, limit int) ([]Post, error) {
	pageURL, err := a.pageURL(query, page, limit)
	if err != nil {
		return nil, err
	}

	var raw []danbooruPost
	if err := getJSON(ctx, client, pageURL, &raw); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(raw))
	for _, p := range raw {
		fileURL := p.FileURL
		if fileURL == "" {
			// Restricted posts only expose the sample.
			fileURL = p.LargeFileURL
		}
		if p.IsBanned || p.IsDeleted {
			// Kept without a file so the page length stays intact.
			fileURL = ""
		}
		posts = append(posts, Post{
			ID:      p.ID,
			FileURL: fileURL,
			FileExt: p.FileExt,
			Rating:  p.Rating,
			Tags: map[string][]string{
				"general":   splitTags(p.TagStringGeneral),
				"character": splitTags(p.TagStringCharacter),
				"copyright": splitTags(p.TagStringCopyright),
				"artist":    splitTags(p.TagStringArtist),
				"meta":      splitTags(p.TagStringMeta),
			},
		})
	}
	return posts, nil
}

// getJSON performs a GET request and decodes the JSON body into v.
func getJSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
