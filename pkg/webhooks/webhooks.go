package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x/jx-helpers/v3/pkg/stringhelpers"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

const (
	// JenkinsWebhookPath the path of the Jenkins endpoint receiving GitHub events
	JenkinsWebhookPath = "github-webhook/"
)

// Invoker sends HTTP requests
type Invoker interface {
	Do(ctx context.Context, method, u string, header http.Header, body []byte) (*httpinvoke.Response, error)
}

// WebhookRegistrationError is returned when the git provider rejects a webhook
type WebhookRegistrationError struct {
	URL        string
	StatusCode int
	Message    string

	// Err the underlying invocation error
	Err error
}

func (e *WebhookRegistrationError) Error() string {
	return fmt.Sprintf("failed to create the webhook at: %s. Status: %d message: %s", e.URL, e.StatusCode, e.Message)
}

func (e *WebhookRegistrationError) Unwrap() error {
	return e.Err
}

// Hook the webhook payload
type Hook struct {
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Events []string   `json:"events"`
	Config HookConfig `json:"config"`
}

// HookConfig the configuration of a webhook
type HookConfig struct {
	URL         string `json:"url"`
	InsecureSSL string `json:"insecure_ssl"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret"`
}

// NewHook creates a hook sending all events as JSON to the given URL
func NewHook(webhookURL, secret string) *Hook {
	return &Hook{
		Name:   "web",
		Active: true,
		Events: []string{"*"},
		Config: HookConfig{
			URL:         webhookURL,
			InsecureSSL: "1",
			ContentType: "json",
			Secret:      secret,
		},
	}
}

// WebhookURL returns the URL on the Jenkins server which receives git events
func WebhookURL(jenkinsURL string) string {
	return strings.TrimSuffix(jenkinsURL, "/") + "/" + JenkinsWebhookPath
}

// Registrar registers webhooks on the git provider
type Registrar struct {
	Invoker Invoker
}

// NewRegistrar creates a new registrar
func NewRegistrar(invoker Invoker) *Registrar {
	return &Registrar{Invoker: invoker}
}

// RegisterWebhook creates a webhook on the repository which posts to the webhook URL.
// Existing webhooks are not checked so calling it twice creates two webhooks
func (r *Registrar) RegisterWebhook(ctx context.Context, account GitAccount, webhookURL, owner, repo, secret string) error {
	authHeader, err := account.AuthHeader()
	if err != nil {
		return errors.Wrapf(err, "cannot create the webhook on %s/%s", owner, repo)
	}
	apiURL := account.APIURL
	if apiURL == "" {
		apiURL, err = APIURLForServer("")
		if err != nil {
			return err
		}
	}
	createURL := stringhelpers.UrlJoin(apiURL, "repos", owner, repo, "hooks")

	body, err := json.Marshal(NewHook(webhookURL, secret))
	if err != nil {
		return errors.Wrapf(err, "failed to marshal the webhook for %s", createURL)
	}

	header := httpinvoke.Headers(authHeader, httpinvoke.MediaTypeJSON)
	header.Set("Accept", httpinvoke.MediaTypeJSON)
	resp, err := r.Invoker.Do(ctx, http.MethodPost, createURL, header, body)
	if err != nil {
		var statusErr *httpinvoke.HTTPStatusError
		var loopErr *httpinvoke.RedirectLoopError
		var locationErr *httpinvoke.MissingLocationError
		switch {
		case errors.As(err, &statusErr):
			return &WebhookRegistrationError{URL: createURL, StatusCode: statusErr.StatusCode, Message: statusMessage(statusErr), Err: err}
		case errors.As(err, &loopErr):
			return &WebhookRegistrationError{URL: createURL, StatusCode: loopErr.StatusCode, Message: "redirected more than once", Err: err}
		case errors.As(err, &locationErr):
			return &WebhookRegistrationError{URL: createURL, StatusCode: locationErr.StatusCode, Message: "redirect without a location header", Err: err}
		}
		return errors.Wrapf(err, "failed to create the webhook at: %s", createURL)
	}
	log.Logger().Infof("got response code from git provider %s status: %d", createURL, resp.StatusCode)
	return nil
}

// statusMessage prefers the message of a JSON error body over the reason phrase
func statusMessage(e *httpinvoke.HTTPStatusError) string {
	body := struct {
		Message string `json:"message"`
	}{}
	if len(e.Body) > 0 && json.Unmarshal(e.Body, &body) == nil && body.Message != "" {
		return body.Message
	}
	return e.Reason
}
