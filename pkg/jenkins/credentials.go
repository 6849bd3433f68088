package jenkins

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x/jx-helpers/v3/pkg/stringhelpers"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

const (
	// DefaultCredentialID the id of the git credential which the organisation job template scans with
	DefaultCredentialID = "jenkins-x-git"

	// ScopeGlobal the credential scope
	ScopeGlobal = "GLOBAL"

	credentialDescription = "git credentials for pipelines created by jx-ci-setup"
	credentialClass       = "com.cloudbees.plugins.credentials.impl.UsernamePasswordCredentialsImpl"
)

// Credential a username and password credential stored on Jenkins
type Credential struct {
	Scope       string `json:"scope"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Description string `json:"description"`
	Class       string `json:"$class"`
}

// NewGitCredential creates the credential used by the organisation jobs to access git
func NewGitCredential(id, username, token string) Credential {
	if id == "" {
		id = DefaultCredentialID
	}
	return Credential{
		Scope:       ScopeGlobal,
		ID:          id,
		Username:    username,
		Password:    token,
		Description: credentialDescription,
		Class:       credentialClass,
	}
}

// EnsureCredential creates the credential. There is no check if it already exists;
// Jenkins replaces or rejects duplicates itself
func (c *Client) EnsureCredential(ctx context.Context, credential Credential) (*httpinvoke.Response, error) {
	createURL := stringhelpers.UrlJoin(c.URL, "credentials/store/system/domain/_") + "/"
	log.Logger().Infof("creating Jenkins credentials %s for git owner: %s", credential.ID, credential.Username)

	payload, err := json.Marshal(map[string]interface{}{
		"":            "0",
		"credentials": credential,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal the credentials %s", credential.ID)
	}
	form := url.Values{}
	form.Set("json", string(payload))

	header := c.headers(httpinvoke.MediaTypeForm)
	header.Set("Accept", httpinvoke.MediaTypeJSON)
	resp, err := c.Invoker.Do(ctx, http.MethodPost, createURL, header, []byte(form.Encode()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create the credentials in Jenkins at the URL %s", createURL)
	}
	return resp, nil
}
