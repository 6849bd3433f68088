package jenkins

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/orgjob"
	"github.com/jenkins-x/jx-helpers/v3/pkg/stringhelpers"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

// Invoker sends HTTP requests
type Invoker interface {
	Do(ctx context.Context, method, u string, header http.Header, body []byte) (*httpinvoke.Response, error)
}

var _ Invoker = &httpinvoke.Client{}

// Client talks to the REST API of a Jenkins server
type Client struct {
	// URL the base URL of the Jenkins server
	URL string

	// AuthHeader the Authorization header sent with every request
	AuthHeader string

	Invoker Invoker
}

// NewClient creates a client for the Jenkins server at the given URL
func NewClient(jenkinsURL, authHeader string, invoker Invoker) *Client {
	return &Client{
		URL:        jenkinsURL,
		AuthHeader: authHeader,
		Invoker:    invoker,
	}
}

// JobURL returns the URL of the organisation job for the owner
func (c *Client) JobURL(owner string) string {
	return stringhelpers.UrlJoin(c.URL, "job", owner)
}

// GetJobConfig returns the config.xml of the organisation job for the owner
func (c *Client) GetJobConfig(ctx context.Context, owner string) ([]byte, error) {
	getURL := stringhelpers.UrlJoin(c.JobURL(owner), "config.xml")
	resp, err := c.Invoker.Do(ctx, http.MethodGet, getURL, c.headers(""), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CreateJob creates the organisation job for the owner
func (c *Client) CreateJob(ctx context.Context, owner string, config []byte) error {
	createURL := stringhelpers.UrlJoin(c.URL, "createItem") + "?name=" + url.QueryEscape(owner)
	_, err := c.Invoker.Do(ctx, http.MethodPost, createURL, c.headers(httpinvoke.MediaTypeXML), config)
	if err != nil {
		return errors.Wrapf(err, "failed to create the organisation job at %s", createURL)
	}
	return nil
}

// UpdateJob replaces the config.xml of the organisation job for the owner
func (c *Client) UpdateJob(ctx context.Context, owner string, config []byte) error {
	updateURL := stringhelpers.UrlJoin(c.JobURL(owner), "config.xml")
	_, err := c.Invoker.Do(ctx, http.MethodPost, updateURL, c.headers(httpinvoke.MediaTypeXML), config)
	if err != nil {
		return errors.Wrapf(err, "failed to update the organisation job at %s", updateURL)
	}
	return nil
}

// EnsureOrganisationJob creates or updates the organisation job of the owner so that it includes the repository
func (c *Client) EnsureOrganisationJob(ctx context.Context, owner, repo string, load orgjob.TemplateLoader) (*orgjob.Descriptor, error) {
	fetch := func() ([]byte, error) {
		return c.GetJobConfig(ctx, owner)
	}
	d, err := orgjob.EnsureDescriptor(fetch, load, owner, repo)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to merge repository %s into the organisation job %s", repo, owner)
	}
	config, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	if d.Created {
		log.Logger().Debugf("creating the organisation job %s", owner)
		err = c.CreateJob(ctx, owner, config)
	} else {
		log.Logger().Debugf("updating the organisation job %s", owner)
		err = c.UpdateJob(ctx, owner, config)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Client) headers(contentType string) http.Header {
	return httpinvoke.Headers(c.AuthHeader, contentType)
}
