// Package wiki talks to MediaWiki APIs: Wikipedia for article text and
// Wikidata for sitelinks and images.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "WhereAmI/1.0"

// apiClient issues GET requests against one api.php endpoint.
type apiClient struct {
	endpoint string
	http     *http.Client
}

func newAPIClient(endpoint string, httpClient *http.Client, timeout time.Duration) apiClient {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return apiClient{endpoint: endpoint, http: httpClient}
}

func (c apiClient) get(ctx context.Context, query url.Values, v any) error {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid api url %s: %w", c.endpoint, err)
	}
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", target.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", target.Host, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
