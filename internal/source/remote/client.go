package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/logpager/internal/api"
	"github.com/rzbill/logpager/internal/loader"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: http %d", e.Code)
	}
	return fmt.Sprintf("remote: http %d: %s", e.Code, e.Message)
}

// Unwrap maps 501 to loader.ErrUnsupportedOperation so actors can detect
// servers that cannot filter.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotImplemented {
		return loader.ErrUnsupportedOperation
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to a logpager server. It implements loader.Fetcher and
// loader.FilterSupporter.
type Client struct {
	base     string
	hc       *http.Client
	longPoll time.Duration
	noFilter bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithLongPoll makes forward fetches wait up to d for new events when the
// page would otherwise be empty.
func WithLongPoll(d time.Duration) Option {
	return func(c *Client) { c.longPoll = d }
}

// WithoutFilter makes SupportsFilter report false, for servers or proxies
// that cannot evaluate filters.
func WithoutFilter() Option {
	return func(c *Client) { c.noFilter = true }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SupportsFilter reports whether forward fetches may carry a filter.
func (c *Client) SupportsFilter() bool { return !c.noFilter }

// FetchForward requests one forward page.
func (c *Client) FetchForward(ctx context.Context, stream string, req loader.ForwardRequest) (loader.Page, error) {
	q := url.Values{"stream": {stream}}
	if !req.Token.IsZero() {
		q.Set("token", string(req.Token))
	}
	if req.Range != nil {
		if !req.Range.Start.IsZero() {
			q.Set("start", strconv.FormatInt(req.Range.Start.UnixMilli(), 10))
		}
		if !req.Range.End.IsZero() {
			q.Set("end", strconv.FormatInt(req.Range.End.UnixMilli(), 10))
		}
	}
	if req.Filter != "" {
		if c.noFilter {
			return loader.Page{}, fmt.Errorf("remote: filter: %w", loader.ErrUnsupportedOperation)
		}
		q.Set("filter", req.Filter)
	}
	if c.longPoll > 0 {
		q.Set("waitMs", strconv.FormatInt(c.longPoll.Milliseconds(), 10))
	}
	var resp api.PageResponse
	if err := c.get(ctx, api.PathEventsForward, q, &resp); err != nil {
		return loader.Page{}, err
	}
	return resp.Page(), nil
}

// FetchBackward requests the page older than token.
func (c *Client) FetchBackward(ctx context.Context, stream string, token loader.Token) (loader.Page, error) {
	q := url.Values{"stream": {stream}, "token": {string(token)}}
	var resp api.PageResponse
	if err := c.get(ctx, api.PathEventsBackward, q, &resp); err != nil {
		return loader.Page{}, err
	}
	return resp.Page(), nil
}

// Groups enumerates log groups.
func (c *Client) Groups() loader.ListFetcher[api.Group] {
	return loader.ListFunc[api.Group](func(ctx context.Context, token loader.Token) (loader.ListPage[api.Group], error) {
		q := url.Values{}
		if !token.IsZero() {
			q.Set("after", string(token))
		}
		var resp api.GroupsResponse
		if err := c.get(ctx, api.PathGroups, q, &resp); err != nil {
			return loader.ListPage[api.Group]{}, err
		}
		return loader.ListPage[api.Group]{Items: resp.Groups, Next: loader.Token(resp.Next)}, nil
	})
}

// Streams enumerates the streams of group.
func (c *Client) Streams(group string) loader.ListFetcher[api.Stream] {
	return loader.ListFunc[api.Stream](func(ctx context.Context, token loader.Token) (loader.ListPage[api.Stream], error) {
		q := url.Values{"group": {group}}
		if !token.IsZero() {
			q.Set("after", string(token))
		}
		var resp api.StreamsResponse
		if err := c.get(ctx, api.PathStreams, q, &resp); err != nil {
			return loader.ListPage[api.Stream]{}, err
		}
		return loader.ListPage[api.Stream]{Items: resp.Streams, Next: loader.Token(resp.Next)}, nil
	})
}

// Ingest appends events to group/stream and returns their sequences.
func (c *Client) Ingest(ctx context.Context, group, stream string, events []api.Event) ([]uint64, error) {
	body, err := json.Marshal(api.IngestRequest{Group: group, Stream: stream, Events: events})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+api.PathEventsIngest, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var resp api.IngestResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Seqs, nil
}

// Health returns nil when the server reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, api.PathHealth, nil, nil)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		var e api.ErrorResponse
		b, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		if json.Unmarshal(b, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(b))
		}
		return &StatusError{Code: res.StatusCode, Message: e.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
