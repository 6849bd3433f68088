package jenkinsutil

import (
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
)

// JenkinsServer represents a jenkins server discovered via its Ingress or specified on the command line
type JenkinsServer struct {
	// Name the name of the Jenkins server. Should be a valid kubernetes name
	Name string

	// URL the URL to connect to the Jenkins server
	URL string

	// SecretName the name of the Secret holding the admin user and password
	SecretName string

	// AuthHeader the Authorization header used for requests to the server
	AuthHeader string
}

// SetBasicAuth uses the user name and password or API token for requests to the server
func (s *JenkinsServer) SetBasicAuth(username, password string) {
	s.AuthHeader = httpinvoke.BasicAuthHeader(username, password)
}

// SetBearerToken uses the bearer token for requests to the server
func (s *JenkinsServer) SetBearerToken(token string) {
	s.AuthHeader = httpinvoke.BearerAuthHeader(token)
}
