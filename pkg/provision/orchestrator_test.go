package provision_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/fakeservers"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkins"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkinsutil"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/orgjob"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/provision"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/webhooks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const credentialsPath = "/credentials/store/system/domain/_/"

type recordingReporter struct {
	provision.LogReporter
	warnings []string
}

func (r *recordingReporter) Warn(message string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(message, args...))
}

type servers struct {
	jenkins  *fakeservers.Jenkins
	git      *fakeservers.GitProvider
	reporter *recordingReporter
	o        *provision.Orchestrator
}

func newServers() *servers {
	s := &servers{
		jenkins:  fakeservers.NewJenkins(),
		git:      fakeservers.NewGitProvider(),
		reporter: &recordingReporter{},
	}
	invoker := httpinvoke.NewClient(httpinvoke.Options{})
	s.o = &provision.Orchestrator{
		Jenkins:  jenkins.NewClient(s.jenkins.URL(), httpinvoke.BasicAuthHeader("admin", "pwd"), invoker),
		Webhooks: webhooks.NewRegistrar(invoker),
		Reporter: s.reporter,
	}
	return s
}

func (s *servers) Close() {
	s.jenkins.Close()
	s.git.Close()
}

func (s *servers) request(repos ...string) provision.Request {
	return provision.Request{
		Owner:        "acme",
		Repositories: repos,
		Jenkins:      jenkinsutil.JenkinsServer{Name: "jenkins", URL: s.jenkins.URL()},
		GitAccount: webhooks.GitAccount{
			Username: "acme-bot",
			Token:    "t0k3n",
			APIURL:   s.git.URL(),
		},
		BotSecret: "bot-secret",
	}
}

func credentialUsername(t *testing.T, r fakeservers.Request) string {
	form, err := url.ParseQuery(r.Body)
	require.NoError(t, err)
	payload := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(form.Get("json")), &payload), "invalid credential JSON %s", form.Get("json"))
	credentials, ok := payload["credentials"].(map[string]interface{})
	require.True(t, ok, "no credentials object in %s", form.Get("json"))
	username, _ := credentials["username"].(string)
	return username
}

func (s *servers) assertNavigator(t *testing.T, owner, pattern string) {
	config, ok := s.jenkins.Job(owner)
	require.True(t, ok, "job %s was not created", owner)

	doc, err := orgjob.ParseDocument(owner, []byte(config))
	require.NoError(t, err)
	navigator := orgjob.FindNavigator(doc)
	require.NotNil(t, navigator)
	assert.Equal(t, owner, navigator.SelectElement(orgjob.RepoOwnerElement).Text())
	assert.Equal(t, pattern, navigator.SelectElement(orgjob.PatternElement).Text())
	assert.Equal(t, jenkins.DefaultCredentialID, navigator.SelectElement(orgjob.CredentialsIDElement).Text())
}

func TestProvisionNewJob(t *testing.T) {
	s := newServers()
	defer s.Close()

	result := s.o.Run(context.Background(), s.request("widgets"))
	require.True(t, result.Success, "failed: %v", result.Err)
	assert.Equal(t, 1, result.Provisioned)
	assert.Equal(t, provision.SuccessMessage, result.Message)
	require.Len(t, result.Repositories, 1)
	assert.True(t, result.Repositories[0].JobCreated)
	assert.True(t, result.Repositories[0].WebhookRegistered)
	assert.Equal(t, jenkins.Triggered, result.Repositories[0].Trigger)

	credentials := s.jenkins.RequestsTo(http.MethodPost, credentialsPath)
	require.Len(t, credentials, 1)
	assert.Equal(t, "acme", credentialUsername(t, credentials[0]), "the credential belongs to the owner, not the git user")
	assert.Len(t, s.jenkins.RequestsTo(http.MethodPost, "/createItem"), 1)
	assert.Len(t, s.jenkins.RequestsTo(http.MethodPost, "/job/acme/build"), 1)
	s.assertNavigator(t, "acme", "widgets")

	credentialIndex, descriptorIndex := -1, -1
	for i, r := range s.jenkins.Requests() {
		if credentialIndex < 0 && r.Method == http.MethodPost && r.Path == credentialsPath {
			credentialIndex = i
		}
		if descriptorIndex < 0 && r.Method == http.MethodGet && r.Path == "/job/acme/config.xml" {
			descriptorIndex = i
		}
	}
	require.True(t, credentialIndex >= 0, "no credential request")
	require.True(t, descriptorIndex >= 0, "no descriptor request")
	assert.Less(t, credentialIndex, descriptorIndex, "the credential should be created before the first descriptor is fetched")

	hooks := s.git.HooksFor("acme/widgets")
	require.Len(t, hooks, 1)
	config, ok := hooks[0]["config"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, s.jenkins.URL()+"/github-webhook/", config["url"])
	assert.Equal(t, "bot-secret", config["secret"])
}

func TestProvisionExistingJob(t *testing.T) {
	s := newServers()
	defer s.Close()

	missing := func() ([]byte, error) {
		return nil, errors.New("not found")
	}
	d, err := orgjob.EnsureDescriptor(missing, orgjob.TemplateWithCredentials(jenkins.DefaultCredentialID), "acme", "widgets")
	require.NoError(t, err)
	existing, err := d.Bytes()
	require.NoError(t, err)
	s.jenkins.Jobs["acme"] = string(existing)

	result := s.o.Run(context.Background(), s.request("gadgets"))
	require.True(t, result.Success, "failed: %v", result.Err)
	assert.False(t, result.Repositories[0].JobCreated)

	assert.Empty(t, s.jenkins.RequestsTo(http.MethodPost, "/createItem"))
	assert.Len(t, s.jenkins.RequestsTo(http.MethodPost, "/job/acme/config.xml"), 1)
	s.assertNavigator(t, "acme", "widgets|gadgets")
}

func TestProvisionWebhookRejected(t *testing.T) {
	s := newServers()
	defer s.Close()
	s.git.StatusOverrides["acme/gadgets"] = http.StatusUnprocessableEntity

	result := s.o.Run(context.Background(), s.request("widgets", "gadgets", "sprockets"))
	require.False(t, result.Success)
	assert.Equal(t, 1, result.Provisioned)

	var hookErr *webhooks.WebhookRegistrationError
	require.True(t, errors.As(result.Err, &hookErr), "expected WebhookRegistrationError but got %v", result.Err)
	assert.Equal(t, http.StatusUnprocessableEntity, hookErr.StatusCode)
	assert.Contains(t, result.Message, "422")

	require.Len(t, result.Repositories, 2)
	assert.Equal(t, "gadgets", result.Repositories[1].Repository)
	assert.Error(t, result.Repositories[1].Err)

	assert.Len(t, s.jenkins.RequestsTo(http.MethodPost, "/job/acme/build"), 1, "should only trigger the build for widgets")
	assert.Empty(t, s.git.HooksFor("acme/sprockets"), "should stop after the first failure")
	s.assertNavigator(t, "acme", "widgets|gadgets")
}

func TestProvisionCredentialFails(t *testing.T) {
	s := newServers()
	defer s.Close()
	s.jenkins.StatusOverrides[credentialsPath] = http.StatusForbidden

	result := s.o.Run(context.Background(), s.request("widgets"))
	require.False(t, result.Success)
	assert.Equal(t, 0, result.Provisioned)

	var statusErr *httpinvoke.HTTPStatusError
	require.True(t, errors.As(result.Err, &statusErr), "expected HTTPStatusError but got %v", result.Err)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Empty(t, s.jenkins.RequestsTo(http.MethodPost, "/createItem"))
	assert.Empty(t, s.git.Requests())
}

func TestProvisionTriggerFailureIsAWarning(t *testing.T) {
	s := newServers()
	defer s.Close()
	s.jenkins.StatusOverrides["/job/acme/build"] = http.StatusForbidden

	result := s.o.Run(context.Background(), s.request("widgets", "gadgets"))
	require.True(t, result.Success, "failed: %v", result.Err)
	assert.Equal(t, 2, result.Provisioned)
	for _, r := range result.Repositories {
		assert.Equal(t, jenkins.TriggerFailed, r.Trigger, r.Repository)
	}
	assert.Len(t, s.reporter.warnings, 2)
}

func TestProvisionDisabledWebhooksAndTrigger(t *testing.T) {
	s := newServers()
	defer s.Close()

	req := s.request("widgets")
	req.DisableWebhooks = true
	req.DisableTrigger = true

	result := s.o.Run(context.Background(), req)
	require.True(t, result.Success, "failed: %v", result.Err)
	assert.Equal(t, provision.SuccessMessageNoWebhooks, result.Message)
	assert.Empty(t, s.git.Requests())
	assert.Empty(t, s.jenkins.RequestsTo(http.MethodPost, "/job/acme/build"))
	assert.Len(t, s.jenkins.RequestsTo(http.MethodPost, credentialsPath), 1)
}

func TestProvisionMissingConfiguration(t *testing.T) {
	s := newServers()
	defer s.Close()

	testCases := []struct {
		name     string
		modify   func(r *provision.Request)
		expected []string
	}{
		{
			name:     "no owner",
			modify:   func(r *provision.Request) { r.Owner = "" },
			expected: []string{"owner"},
		},
		{
			name:     "no repositories",
			modify:   func(r *provision.Request) { r.Repositories = nil },
			expected: []string{"repositories"},
		},
		{
			name:     "no jenkins",
			modify:   func(r *provision.Request) { r.Jenkins.URL = "" },
			expected: []string{"jenkins URL"},
		},
		{
			name: "no git credentials",
			modify: func(r *provision.Request) {
				r.GitAccount.Username = ""
				r.GitAccount.Token = ""
			},
			expected: []string{"git token"},
		},
	}

	for _, tc := range testCases {
		req := s.request("widgets")
		tc.modify(&req)

		result := s.o.Run(context.Background(), req)
		require.False(t, result.Success, tc.name)

		var missingErr *provision.ConfigurationMissingError
		require.True(t, errors.As(result.Err, &missingErr), "%s: expected ConfigurationMissingError but got %v", tc.name, result.Err)
		assert.Equal(t, tc.expected, missingErr.Missing, tc.name)
	}
	assert.Empty(t, s.jenkins.Requests(), "should not call Jenkins with missing configuration")
	assert.Empty(t, s.git.Requests(), "should not call the git provider with missing configuration")
}

type MockJenkinsClient struct {
	mock.Mock
}

func (m *MockJenkinsClient) EnsureCredential(ctx context.Context, credential jenkins.Credential) (*httpinvoke.Response, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(*httpinvoke.Response), args.Error(1)
}

func (m *MockJenkinsClient) EnsureOrganisationJob(ctx context.Context, owner, repo string, load orgjob.TemplateLoader) (*orgjob.Descriptor, error) {
	args := m.Called(ctx, owner, repo)
	return args.Get(0).(*orgjob.Descriptor), args.Error(1)
}

func (m *MockJenkinsClient) JobURL(owner string) string {
	args := m.Called(owner)
	return args.String(0)
}

func (m *MockJenkinsClient) TriggerIfIdle(ctx context.Context, jobURL string) (jenkins.TriggerResult, error) {
	args := m.Called(ctx, jobURL)
	return args.Get(0).(jenkins.TriggerResult), args.Error(1)
}

type MockWebhookRegistrar struct {
	mock.Mock
}

func (m *MockWebhookRegistrar) RegisterWebhook(ctx context.Context, account webhooks.GitAccount, webhookURL, owner, repo, secret string) error {
	args := m.Called(ctx, account, webhookURL, owner, repo, secret)
	return args.Error(0)
}

func TestProvisionCreatesCredentialOnce(t *testing.T) {
	jobURL := "https://jenkins.example.com/job/acme"
	mj := new(MockJenkinsClient)
	mj.On("EnsureCredential", mock.Anything, mock.MatchedBy(func(c jenkins.Credential) bool {
		return c.ID == "my-creds" && c.Username == "acme" && c.Password == "t0k3n"
	})).Return(&httpinvoke.Response{StatusCode: http.StatusOK}, nil)
	mj.On("JobURL", "acme").Return(jobURL)
	mj.On("EnsureOrganisationJob", mock.Anything, "acme", mock.Anything).Return(&orgjob.Descriptor{Changed: true}, nil)
	mj.On("TriggerIfIdle", mock.Anything, jobURL).Return(jenkins.Skipped, nil)

	mw := new(MockWebhookRegistrar)
	mw.On("RegisterWebhook", mock.Anything, mock.Anything, "https://jenkins.example.com/github-webhook/", "acme", mock.Anything, webhooks.DefaultBotSecret).Return(nil)

	o := &provision.Orchestrator{
		Jenkins:  mj,
		Webhooks: mw,
		Reporter: &recordingReporter{},
	}
	result := o.Run(context.Background(), provision.Request{
		Owner:        "acme",
		Repositories: []string{"widgets", "gadgets"},
		Jenkins:      jenkinsutil.JenkinsServer{URL: "https://jenkins.example.com"},
		GitAccount:   webhooks.GitAccount{Username: "acme-bot", Token: "t0k3n"},
		CredentialID: "my-creds",
	})
	require.True(t, result.Success, "failed: %v", result.Err)
	assert.Equal(t, 2, result.Provisioned)

	mj.AssertNumberOfCalls(t, "EnsureCredential", 1)
	mj.AssertNumberOfCalls(t, "EnsureOrganisationJob", 2)
	mj.AssertCalled(t, "EnsureOrganisationJob", mock.Anything, "acme", "widgets")
	mj.AssertCalled(t, "EnsureOrganisationJob", mock.Anything, "acme", "gadgets")
	mw.AssertNumberOfCalls(t, "RegisterWebhook", 2)
}
