package webhooks

import (
	"net/url"
	"strings"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/pkg/errors"
)

const (
	// DefaultGitServerURL the git server used if none is specified
	DefaultGitServerURL = "https://github.com"
)

// GitAccount the credentials used to talk to the git provider API
type GitAccount struct {
	Username string
	Token    string
	Password string

	// APIURL the base URL of the git provider REST API such as https://api.github.com
	APIURL string
}

// AuthHeader returns the Authorization header for the account. A token is preferred over a password
func (a *GitAccount) AuthHeader() (string, error) {
	if a.Token != "" {
		return httpinvoke.BearerAuthHeader(a.Token), nil
	}
	if a.Username != "" && a.Password != "" {
		return httpinvoke.BasicAuthHeader(a.Username, a.Password), nil
	}
	return "", errors.Errorf("no token or password for git user %q", a.Username)
}

// Secret returns the token or password of the account
func (a *GitAccount) Secret() string {
	if a.Token != "" {
		return a.Token
	}
	return a.Password
}

// APIURLForServer returns the REST API URL of the given git server. e.g. https://api.github.com for https://github.com
func APIURLForServer(gitServerURL string) (string, error) {
	if gitServerURL == "" {
		gitServerURL = DefaultGitServerURL
	}
	if !strings.Contains(gitServerURL, "://") {
		gitServerURL = "https://" + gitServerURL
	}
	u, err := url.Parse(gitServerURL)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse git server URL %s", gitServerURL)
	}
	if u.Host == "" {
		return "", errors.Errorf("no host in git server URL %s", gitServerURL)
	}
	host := u.Host
	if !strings.HasPrefix(host, "api.") {
		host = "api." + host
	}
	return "https://" + host, nil
}
