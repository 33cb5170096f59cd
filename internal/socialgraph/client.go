package socialgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/pushp314/connectly-backend/pkg/errors"
)

// Client resolves follow relationships from the external social-graph
// service. Implementations must honor the context deadline; callers treat
// any error as "not mutually followed".
type Client interface {
	MutualFollow(ctx context.Context, userID, targetID string) (bool, error)
	Friends(ctx context.Context, userID string) ([]Friend, error)
}

// Friend is the social-graph service's view of a mutually followed user.
type Friend struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Image    string `json:"image"`
}

// HTTPClient talks to the social-graph service over REST.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client with a bounded request timeout.
// The default of 2s keeps the direct-or-request decision snappy.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) MutualFollow(ctx context.Context, userID, targetID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/graph/mutual?userId=%s&targetId=%s",
		c.baseURL, url.QueryEscape(userID), url.QueryEscape(targetID))

	var body struct {
		Mutual bool `json:"mutual"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return false, err
	}
	return body.Mutual, nil
}

func (c *HTTPClient) Friends(ctx context.Context, userID string) ([]Friend, error) {
	endpoint := fmt.Sprintf("%s/graph/friends?userId=%s", c.baseURL, url.QueryEscape(userID))

	var body struct {
		Friends []Friend `json:"friends"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	return body.Friends, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.Unavailable("social graph request could not be built")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Unavailable("social graph unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Unavailable(fmt.Sprintf("social graph returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperrors.Unavailable("social graph returned a malformed response")
	}
	return nil
}
