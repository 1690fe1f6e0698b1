package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"WhereAmI/internal/config"
	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

// ErrNoPages means the query answered without any page at all.
var ErrNoPages = errors.New("no pages found to speak")

type page struct {
	PageID  int             `json:"pageid"`
	Title   string          `json:"title"`
	Extract string          `json:"extract"`
	FullURL string          `json:"fullurl"`
	Missing json.RawMessage `json:"missing"`
}

type queryResponse struct {
	Query struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
}

// ArticleClient fetches Wikipedia pages by title or around a coordinate.
type ArticleClient struct {
	api apiClient
}

var _ ports.ArticleSource = (*ArticleClient)(nil)

// NewArticleClient wires an HTTP client; a nil client gets the configured timeout.
func NewArticleClient(cfg config.WikiConfig, httpClient *http.Client) *ArticleClient {
	return &ArticleClient{api: newAPIClient(cfg.APIURL, httpClient, cfg.Timeout)}
}

// ArticleByTitle requests the plain-text extract of one page, following redirects.
func (c *ArticleClient) ArticleByTitle(ctx context.Context, title string) (domain.RawArticle, error) {
	query := url.Values{}
	query.Set("action", "query")
	query.Set("prop", "pageimages|extracts|info")
	query.Set("pithumbsize", "900")
	query.Set("format", "json")
	query.Set("explaintext", "true")
	query.Set("exsectionformat", "wiki")
	query.Set("titles", title)
	query.Set("redirects", "true")
	query.Set("inprop", "url")

	var resp queryResponse
	if err := c.api.get(ctx, query, &resp); err != nil {
		return domain.RawArticle{}, fmt.Errorf("article %q: %w", title, err)
	}
	return firstPage(resp)
}

// ArticleNear searches pages around coords ("lat|lon") and returns the first
// one with its HTML extract flattened.
func (c *ArticleClient) ArticleNear(ctx context.Context, coords string) (domain.RawArticle, error) {
	query := url.Values{}
	query.Set("action", "query")
	query.Set("generator", "geosearch")
	query.Set("prop", "coordinates|pageimages|extracts|info")
	query.Set("ggscoord", coords)
	query.Set("format", "json")
	query.Set("exsectionformat", "wiki")
	query.Set("pithumbsize", "900")
	query.Set("redirects", "true")
	query.Set("inprop", "url")

	var resp queryResponse
	if err := c.api.get(ctx, query, &resp); err != nil {
		return domain.RawArticle{}, fmt.Errorf("articles near %s: %w", coords, err)
	}

	raw, err := firstPage(resp)
	if err != nil || raw.Missing {
		return raw, err
	}

	raw.Extract, err = flattenHTML(raw.Extract)
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("articles near %s: %w", coords, err)
	}
	return raw, nil
}

// firstPage picks the existing page with the lowest id. Missing pages are
// keyed by negative ids.
func firstPage(resp queryResponse) (domain.RawArticle, error) {
	pages := resp.Query.Pages
	if len(pages) == 0 {
		return domain.RawArticle{}, ErrNoPages
	}

	ids := make([]int, 0, len(pages))
	byID := make(map[int]page, len(pages))
	for key, p := range pages {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || len(p.Missing) > 0 {
			continue
		}
		ids = append(ids, id)
		byID[id] = p
	}
	if len(ids) == 0 {
		return domain.RawArticle{Missing: true}, nil
	}

	sort.Ints(ids)
	p := byID[ids[0]]
	return domain.RawArticle{
		Extract: p.Extract,
		Title:   p.Title,
		PageURL: p.FullURL,
	}, nil
}
