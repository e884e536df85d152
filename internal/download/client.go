package download

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// ErrNoMoreContent marks a page past the end of the archive (HTTP 404). It
// is advisory: with several pages in flight, workers may already be past the
// stop point, so the batch stops best-effort and may overshoot.
var ErrNoMoreContent = errors.New("download: no more content")

// Client is a thin GET client with a per-request timeout and uniform status
// handling.
type Client struct {
	client *http.Client
	logger log.Logger
}

// NewClient validates baseURL-style inputs lazily; it only configures the
// underlying http.Client.
func NewClient(timeout time.Duration, logger log.Logger) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Get fetches rawurl and returns the response body. A 404 is reported as
// ErrNoMoreContent so callers can tell "past the end" from a transport
// failure.
func (c *Client) Get(rawurl string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", rawurl)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", rawurl)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoMoreContent
	}
	if resp.StatusCode != http.StatusOK {
		level.Error(c.logger).Log("msg", "unexpected status", "url", rawurl, "http-statuscode", resp.Status)
		return nil, errors.Errorf("unexpected status %s for %s", resp.Status, rawurl)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response of %s", rawurl)
	}
	return body, nil
}

// ValidateBaseURL checks that base looks like an absolute http(s) URL before
// any worker starts.
func ValidateBaseURL(base string) error {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return errors.Wrapf(err, "invalid base URL %s", base)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Errorf("invalid base URL: %s", base)
	}
	return nil
}
