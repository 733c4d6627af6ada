// Package items looks up PBS items by drug name so the prescriber can pick
// the item and restriction an authority request is raised against.
package items

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	clienterrors "github.com/sierraromeo/go-pbs-authority/internal/errors"
)

// Item is one PBS item returned by the search service.
type Item struct {
	ItemCode        string `json:"pbs_code"`
	Brands          string `json:"brands"`
	AMTCode         string `json:"amt_id"`
	Drug            string `json:"drug"`
	Program         string `json:"program"`
	RestrictionCode string `json:"treatment_code"`
	RestrictionText string `json:"restriction_text"`
	MaxQuantity     int    `json:"max_quantity"`
	MaxRepeats      int    `json:"max_repeats"`
}

type searchResults struct {
	Results []Item `json:"results"`
}

// Client queries the item search service.
type Client struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

// ClientOption modifies a Client at construction time.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for search calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a search client for the service at endpoint.
func NewClient(endpoint string, options ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   http.DefaultClient,
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Search returns the items matching query. A search superseded through ctx
// is discarded and reported as a cancellation, even when the reply had
// already arrived.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	u := c.endpoint + "/v1/drug?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Search] building request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, clienterrors.Wrapf(clienterrors.ErrCancelled, "item search %q", query)
		}
		return nil, clienterrors.Wrapf(clienterrors.ErrTransport, "item search: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil && ctx.Err() == nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrTransport, "reading search response: %v", err)
	}
	if ctx.Err() != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrCancelled, "item search %q", query)
	}
	if res.StatusCode != http.StatusOK {
		return nil, clienterrors.Wrapf(clienterrors.ErrDecode, "item search returned status %d: %s", res.StatusCode, string(body))
	}

	var results searchResults
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrDecode, "search response %q: %v", string(body), err)
	}
	c.log.Debug().Str("query", query).Int("results", len(results.Results)).Msg("item search complete")
	return results.Results, nil
}
