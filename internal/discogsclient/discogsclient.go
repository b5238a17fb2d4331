// Package discogsclient is a minimal OAuth-1.0a-signed HTTP client for the
// two paginated Discogs endpoints the sync engine needs: a user's
// collection and wantlist. Grounded on ninnemana-go-discogs's
// net/http + encoding/json request shape (discogs.go's `request`/
// `requestWithCreds` helpers), signed with internal/oauth1sign instead of
// gomodule/oauth1 for the reason recorded in DESIGN.md.
package discogsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"time"

	"discogsography/internal/oauth1sign"
	"discogsography/pkg/logger"
)

const (
	perPage        = 100
	rateLimitSleep = 60 * time.Second
	pagePause      = 500 * time.Millisecond
	requestTimeout = 30 * time.Second
)

// Client is configured once per process with the connection details;
// consumer and token credentials are supplied per call since spec.md
// §4.D.3 sources the app's consumer credentials from the relational
// store on every sync run rather than from process configuration.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	log       logger.Logger
}

func New(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: requestTimeout},
		log:       logger.New("discogsclient"),
	}
}

// CollectionItem is one row of a collection page, shaped per spec.md
// §4.D.2's field list. ReleaseID comes from item.basic_information.id.
type CollectionItem struct {
	ReleaseID  int
	InstanceID int
	Artist     string
	Title      string
	Label      string
	Year       int
	Formats    json.RawMessage
	Rating     int
	DateAdded  string
}

// WantlistItem is one row of a wantlist page. ReleaseID comes from the
// top-level item.id, the asymmetry spec.md §4.D.2 calls out explicitly.
type WantlistItem struct {
	ReleaseID int
	Artist    string
	Title     string
	Format    string
	Year      int
	Notes     string
	DateAdded string
}

// Collection returns an iterator over every page of username's collection,
// signed with token. The sequence yields one (page-of-items, error) pair
// per HTTP page; a non-nil error on a yielded pair ends iteration after
// that pair is consumed.
func (c *Client) Collection(ctx context.Context, username string, consumer, token oauth1sign.Credentials) iter.Seq2[[]CollectionItem, error] {
	return func(yield func([]CollectionItem, error) bool) {
		path := fmt.Sprintf("%s/users/%s/collection/folders/0/releases", c.baseURL, username)
		c.paginate(ctx, path, consumer, token, map[string]string{"sort": "added", "sort_order": "desc"}, func(body []byte) (int, bool, error) {
			var page collectionPage
			if err := json.Unmarshal(body, &page); err != nil {
				return 0, false, err
			}
			items := make([]CollectionItem, 0, len(page.Releases))
			for _, r := range page.Releases {
				if r.BasicInformation.ID == 0 {
					continue
				}
				items = append(items, CollectionItem{
					ReleaseID:  r.BasicInformation.ID,
					InstanceID: r.InstanceID,
					Artist:     firstArtistName(r.BasicInformation.Artists),
					Title:      r.BasicInformation.Title,
					Label:      firstLabelName(r.BasicInformation.Labels),
					Year:       r.BasicInformation.Year,
					Formats:    r.BasicInformation.Formats,
					Rating:     r.Rating,
					DateAdded:  r.DateAdded,
				})
			}
			if !yield(items, nil) {
				return page.Pagination.Pages, true, nil
			}
			return page.Pagination.Pages, false, nil
		}, yield)
	}
}

// Wantlist returns an iterator over every page of username's wantlist,
// signed with token.
func (c *Client) Wantlist(ctx context.Context, username string, consumer, token oauth1sign.Credentials) iter.Seq2[[]WantlistItem, error] {
	return func(yield func([]WantlistItem, error) bool) {
		path := fmt.Sprintf("%s/users/%s/wants", c.baseURL, username)
		c.paginateWants(ctx, path, consumer, token, func(body []byte) (int, bool, error) {
			var page wantlistPage
			if err := json.Unmarshal(body, &page); err != nil {
				return 0, false, err
			}
			items := make([]WantlistItem, 0, len(page.Wants))
			for _, w := range page.Wants {
				if w.ID == 0 {
					continue
				}
				items = append(items, WantlistItem{
					ReleaseID: w.ID,
					Artist:    firstArtistName(w.BasicInformation.Artists),
					Title:     w.BasicInformation.Title,
					Format:    firstFormatName(w.BasicInformation.Formats),
					Year:      w.BasicInformation.Year,
					Notes:     w.Notes,
					DateAdded: w.DateAdded,
				})
			}
			if !yield(items, nil) {
				return page.Pagination.Pages, true, nil
			}
			return page.Pagination.Pages, false, nil
		}, yield)
	}
}

// paginate drives the shared loop from spec.md §4.D.2 for the collection
// endpoint (which takes sort/sort_order query params).
func (c *Client) paginate(ctx context.Context, path string, consumer, token oauth1sign.Credentials, extraParams map[string]string, handle func([]byte) (pages int, stop bool, err error), yield func([]CollectionItem, error) bool) {
	page := 1
	for {
		params := map[string]string{
			"per_page": fmt.Sprintf("%d", perPage),
			"page":     fmt.Sprintf("%d", page),
		}
		for k, v := range extraParams {
			params[k] = v
		}

		body, status, err := c.get(ctx, path, consumer, token, params)
		if err != nil {
			yield(nil, err)
			return
		}
		if status == http.StatusTooManyRequests {
			c.log.Warn("discogs rate limited, sleeping", "seconds", rateLimitSleep.Seconds())
			select {
			case <-ctx.Done():
				return
			case <-time.After(rateLimitSleep):
			}
			continue
		}
		if status != http.StatusOK {
			c.log.Warn("discogs returned non-200, ending sync page", "status", status, "path", path)
			return
		}

		pages, stop, err := handle(body)
		if err != nil {
			yield(nil, err)
			return
		}
		if stop {
			return
		}
		if pages <= page {
			return
		}
		page++

		select {
		case <-ctx.Done():
			return
		case <-time.After(pagePause):
		}
	}
}

// paginateWants mirrors paginate for the wantlist endpoint, which takes no
// sort parameters.
func (c *Client) paginateWants(ctx context.Context, path string, consumer, token oauth1sign.Credentials, handle func([]byte) (pages int, stop bool, err error), yield func([]WantlistItem, error) bool) {
	page := 1
	for {
		params := map[string]string{
			"per_page": fmt.Sprintf("%d", perPage),
			"page":     fmt.Sprintf("%d", page),
		}

		body, status, err := c.get(ctx, path, consumer, token, params)
		if err != nil {
			yield(nil, err)
			return
		}
		if status == http.StatusTooManyRequests {
			c.log.Warn("discogs rate limited, sleeping", "seconds", rateLimitSleep.Seconds())
			select {
			case <-ctx.Done():
				return
			case <-time.After(rateLimitSleep):
			}
			continue
		}
		if status != http.StatusOK {
			c.log.Warn("discogs returned non-200, ending sync page", "status", status, "path", path)
			return
		}

		pages, stop, err := handle(body)
		if err != nil {
			yield(nil, err)
			return
		}
		if stop {
			return
		}
		if pages <= page {
			return
		}
		page++

		select {
		case <-ctx.Done():
			return
		case <-time.After(pagePause):
		}
	}
}

func (c *Client) get(ctx context.Context, baseURL string, consumer, token oauth1sign.Credentials, params map[string]string) ([]byte, int, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	authHeader, err := oauth1sign.Sign(oauth1sign.Request{
		Method:      http.MethodGet,
		BaseURL:     baseURL,
		QueryParams: params,
	}, consumer, token)
	if err != nil {
		return nil, 0, fmt.Errorf("discogsclient: sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", authHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

type pagination struct {
	Pages int `json:"pages"`
}

type basicInformation struct {
	ID      int             `json:"id"`
	Title   string          `json:"title"`
	Year    int             `json:"year"`
	Artists []namedRef      `json:"artists"`
	Labels  []namedRef      `json:"labels"`
	Formats json.RawMessage `json:"formats"`
}

type namedRef struct {
	Name string `json:"name"`
}

type collectionPage struct {
	Pagination pagination `json:"pagination"`
	Releases   []struct {
		InstanceID       int              `json:"instance_id"`
		Rating           int              `json:"rating"`
		DateAdded        string           `json:"date_added"`
		BasicInformation basicInformation `json:"basic_information"`
	} `json:"releases"`
}

type wantlistPage struct {
	Pagination pagination `json:"pagination"`
	Wants      []struct {
		ID               int              `json:"id"`
		Notes            string           `json:"notes"`
		DateAdded        string           `json:"date_added"`
		BasicInformation basicInformation `json:"basic_information"`
	} `json:"wants"`
}

func firstArtistName(artists []namedRef) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func firstLabelName(labels []namedRef) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0].Name
}

func firstFormatName(raw json.RawMessage) string {
	var formats []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &formats); err != nil || len(formats) == 0 {
		return ""
	}
	return formats[0].Name
}
