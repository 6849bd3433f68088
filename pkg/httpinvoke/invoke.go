package httpinvoke

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

const (
	// MaxAttempts the maximum number of requests made by a single invocation
	MaxAttempts = 2

	// DefaultTimeout the default timeout of a single request
	DefaultTimeout = 30 * time.Second
)

// errRedirected signals the retry loop to send the request again to its new location
var errRedirected = errors.New("redirected")

// Options configures how requests are sent
type Options struct {
	// Insecure disables TLS certificate and host name verification for this client only.
	// Use it for test and staging servers with self signed certificates
	Insecure bool

	// RootCAs the certificates to trust. If nil the system pool is used
	RootCAs *x509.CertPool

	// Timeout the timeout of each request
	Timeout time.Duration
}

// Client invokes HTTP requests, following at most one redirect.
// Each invocation uses its own transport so connections are never shared between calls
type Client struct {
	Options Options
}

// Request a request along with its redirect state. A Request is owned by a single invocation
type Request struct {
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
	Attempt    int
	Redirected bool
}

// Response the result of a successful invocation
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// URL the URL which was finally requested, after any redirect
	URL string
}

// NewClient creates a new client with the given options
func NewClient(o Options) *Client {
	return &Client{Options: o}
}

// Do invokes a request with the given method, URL, headers and body
func (c *Client) Do(ctx context.Context, method, u string, header http.Header, body []byte) (*Response, error) {
	return c.Invoke(ctx, &Request{
		Method: method,
		URL:    u,
		Header: header,
		Body:   body,
	})
}

// Invoke sends the request. A redirect is followed once; a second redirect fails with RedirectLoopError.
// Any non 2xx status fails with HTTPStatusError
func (c *Client) Invoke(ctx context.Context, r *Request) (*Response, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	httpClient, transport := c.createClient()
	defer transport.CloseIdleConnections()

	var answer *Response
	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, MaxAttempts-1)
	err := backoff.Retry(func() error {
		r.Attempt++
		resp, err := send(ctx, httpClient, r)
		if err != nil {
			return backoff.Permanent(err)
		}
		reason := reasonPhrase(resp)
		log.Logger().Debugf("response from %s %s is %d %s", r.Method, r.URL, resp.StatusCode, reason)

		switch {
		case isRedirect(resp.StatusCode):
			if r.Redirected {
				log.Logger().Warnf("failed to process %s and got status: %d %s", r.URL, resp.StatusCode, reason)
				return backoff.Permanent(&RedirectLoopError{URL: r.URL, StatusCode: resp.StatusCode})
			}
			r.Redirected = true
			location := resp.Header.Get("Location")
			if location == "" {
				log.Logger().Warnf("failed to process %s and got status: %d %s but no location header", r.URL, resp.StatusCode, reason)
				return backoff.Permanent(&MissingLocationError{URL: r.URL, StatusCode: resp.StatusCode})
			}
			target, err := resolveLocation(r.URL, location)
			if err != nil {
				return backoff.Permanent(err)
			}
			log.Logger().Debugf("following redirect from %s to %s", r.URL, target)
			r.URL = target
			if resp.StatusCode == http.StatusSeeOther && r.Method != http.MethodGet && r.Method != http.MethodHead {
				r.Method = http.MethodGet
				r.Body = nil
				r.Header = r.Header.Clone()
				r.Header.Del("Content-Type")
			}
			return errRedirected

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			log.Logger().Warnf("failed to process %s and got status: %d %s", r.URL, resp.StatusCode, reason)
			return backoff.Permanent(&HTTPStatusError{
				Method:     r.Method,
				URL:        r.URL,
				StatusCode: resp.StatusCode,
				Reason:     reason,
				Body:       resp.Body,
			})
		}
		answer = resp
		return nil
	}, policy)

	if err != nil {
		return nil, err
	}
	return answer, nil
}

func (c *Client) createClient() (*http.Client, *http.Transport) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.Options.Insecure || c.Options.RootCAs != nil {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: c.Options.Insecure, //nolint:gosec
			RootCAs:            c.Options.RootCAs,
		}
	}
	timeout := c.Options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		// redirects are handled by Invoke so they count towards the single redirect
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return httpClient, transport
}

func send(ctx context.Context, httpClient *http.Client, r *Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s request for %s", r.Method, r.URL)
	}
	for k, values := range r.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke %s %s", r.Method, r.URL)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the response body of %s %s", r.Method, r.URL)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
		URL:        r.URL,
	}, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func reasonPhrase(resp *Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse URL %s", current)
	}
	target, err := base.Parse(location)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse the location header %s", location)
	}
	return target.String(), nil
}
