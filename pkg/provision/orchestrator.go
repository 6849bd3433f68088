package provision

import (
	"context"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkins"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkinsutil"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/orgjob"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/webhooks"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

const (
	// SuccessMessage the message of a successful provisioning
	SuccessMessage = "Created Jenkins organisation job and CI webhooks"

	// SuccessMessageNoWebhooks the message of a successful provisioning with webhooks disabled
	SuccessMessageNoWebhooks = "Created Jenkins organisation job"
)

// JenkinsClient the Jenkins operations used to provision repositories
type JenkinsClient interface {
	EnsureCredential(ctx context.Context, credential jenkins.Credential) (*httpinvoke.Response, error)
	EnsureOrganisationJob(ctx context.Context, owner, repo string, load orgjob.TemplateLoader) (*orgjob.Descriptor, error)
	JobURL(owner string) string
	TriggerIfIdle(ctx context.Context, jobURL string) (jenkins.TriggerResult, error)
}

// WebhookRegistrar registers webhooks on the git provider
type WebhookRegistrar interface {
	RegisterWebhook(ctx context.Context, account webhooks.GitAccount, webhookURL, owner, repo, secret string) error
}

var (
	_ JenkinsClient    = &jenkins.Client{}
	_ WebhookRegistrar = &webhooks.Registrar{}
)

// Request the repositories to provision and the settings used to do it
type Request struct {
	Owner        string
	Repositories []string
	Jenkins      jenkinsutil.JenkinsServer
	GitAccount   webhooks.GitAccount

	// WebhookURL the URL the webhooks post to. Defaults to the github-webhook endpoint of Jenkins
	WebhookURL string

	// BotSecret the webhook secret. Defaults to webhooks.DefaultBotSecret
	BotSecret string

	// CredentialID the id of the Jenkins credential. Defaults to jenkins.DefaultCredentialID
	CredentialID string

	DisableWebhooks bool
	DisableTrigger  bool
}

// RepositoryResult the outcome for a single repository
type RepositoryResult struct {
	Repository        string
	JobURL            string
	JobCreated        bool
	WebhookRegistered bool
	Trigger           jenkins.TriggerResult
	Err               error
}

// Result the outcome of a batch
type Result struct {
	Success bool

	// Provisioned the number of repositories completed before any failure
	Provisioned int

	// Err the first fatal error
	Err error

	Message      string
	Repositories []RepositoryResult
}

// Orchestrator provisions the Jenkins organisation job, credential and webhooks of repositories
type Orchestrator struct {
	Jenkins  JenkinsClient
	Webhooks WebhookRegistrar

	// Template loads the organisation job used if the job does not exist yet.
	// Defaults to the bundled template using the credential of the request
	Template orgjob.TemplateLoader

	Reporter Reporter
}

// Run provisions the repositories in order. The first failure of the credential, organisation job or
// webhook stops the batch. Failing to trigger a build is only reported as a warning
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	result := &Result{}
	err := o.Validate(&req)
	if err != nil {
		return result.fail(err)
	}

	reporter := o.GetReporter()
	credentialID := req.CredentialID
	if credentialID == "" {
		credentialID = jenkins.DefaultCredentialID
	}
	load := o.Template
	if load == nil {
		load = orgjob.TemplateWithCredentials(credentialID)
	}
	webhookURL := req.WebhookURL
	if webhookURL == "" {
		webhookURL = webhooks.WebhookURL(req.Jenkins.URL)
	}
	botSecret := req.BotSecret
	if botSecret == "" {
		botSecret = webhooks.DefaultBotSecret
	}

	credential := jenkins.NewGitCredential(credentialID, req.Owner, req.GitAccount.Secret())
	_, err = o.Jenkins.EnsureCredential(ctx, credential)
	if err != nil {
		return result.fail(errors.Wrapf(err, "failed to create the Jenkins credential %s", credentialID))
	}
	reporter.CredentialEnsured(credentialID, req.Jenkins.URL)

	for _, repo := range req.Repositories {
		r := RepositoryResult{Repository: repo}
		err = o.provisionRepository(ctx, &req, repo, load, webhookURL, botSecret, &r)
		r.Err = err
		result.Repositories = append(result.Repositories, r)
		if err != nil {
			return result.fail(err)
		}
		result.Provisioned++
	}

	result.Success = true
	result.Message = SuccessMessage
	if req.DisableWebhooks {
		result.Message = SuccessMessageNoWebhooks
	}
	return result
}

func (o *Orchestrator) provisionRepository(ctx context.Context, req *Request, repo string, load orgjob.TemplateLoader, webhookURL, botSecret string, r *RepositoryResult) error {
	owner := req.Owner
	r.JobURL = o.Jenkins.JobURL(owner)

	d, err := o.Jenkins.EnsureOrganisationJob(ctx, owner, repo, load)
	if err != nil {
		return errors.Wrapf(err, "failed to set up the Jenkins organisation job %s for repository %s", owner, repo)
	}
	r.JobCreated = d.Created
	if d.Created {
		o.GetReporter().JobCreated(owner, repo, r.JobURL)
	} else {
		o.GetReporter().JobUpdated(owner, repo, r.JobURL)
	}

	if !req.DisableWebhooks {
		err = o.Webhooks.RegisterWebhook(ctx, req.GitAccount, webhookURL, owner, repo, botSecret)
		if err != nil {
			return err
		}
		r.WebhookRegistered = true
		o.GetReporter().WebhookRegistered(owner, repo, webhookURL)
	}

	if req.DisableTrigger {
		r.Trigger = jenkins.Skipped
		return nil
	}
	r.Trigger, err = o.Jenkins.TriggerIfIdle(ctx, r.JobURL)
	switch {
	case err != nil:
		o.GetReporter().Warn("failed to trigger a build of %s: %s", r.JobURL, err.Error())
	case r.Trigger == jenkins.Skipped:
		o.GetReporter().BuildSkipped(r.JobURL)
	default:
		o.GetReporter().BuildTriggered(r.JobURL)
	}
	return nil
}

// Validate checks the orchestrator and request have everything needed before any network call is made
func (o *Orchestrator) Validate(req *Request) error {
	var missing []string
	if o.Jenkins == nil {
		missing = append(missing, "jenkins client")
	}
	if o.Webhooks == nil && !req.DisableWebhooks {
		missing = append(missing, "webhook registrar")
	}
	if req.Owner == "" {
		missing = append(missing, "owner")
	}
	if len(req.Repositories) == 0 {
		missing = append(missing, "repositories")
	}
	for _, repo := range req.Repositories {
		if repo == "" {
			missing = append(missing, "repository name")
			break
		}
	}
	if req.Jenkins.URL == "" {
		missing = append(missing, "jenkins URL")
	}
	if req.GitAccount.Secret() == "" {
		missing = append(missing, "git token")
	}
	if len(missing) > 0 {
		return &ConfigurationMissingError{Missing: missing}
	}
	return nil
}

// GetReporter returns the reporter or the default log reporter
func (o *Orchestrator) GetReporter() Reporter {
	if o.Reporter == nil {
		o.Reporter = &LogReporter{}
	}
	return o.Reporter
}

func (r *Result) fail(err error) *Result {
	r.Success = false
	r.Err = err
	r.Message = err.Error()
	log.Logger().Debugf("provisioning stopped after %d repositories: %s", r.Provisioned, r.Message)
	return r
}
