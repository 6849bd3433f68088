package provisioncmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cache"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cmd/common"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkins"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkinsutil"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/provision"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/webhooks"
	"github.com/jenkins-x/go-scm/scm"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras/helper"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras/templates"
	"github.com/jenkins-x/jx-helpers/v3/pkg/input"
	"github.com/jenkins-x/jx-helpers/v3/pkg/input/inputfactory"
	"github.com/jenkins-x/jx-helpers/v3/pkg/kube"
	"github.com/jenkins-x/jx-helpers/v3/pkg/options"
	"github.com/jenkins-x/jx-helpers/v3/pkg/scmhelpers"
	"github.com/jenkins-x/jx-helpers/v3/pkg/termcolor"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
)

var (
	provisionLong = templates.LongDesc(`
		Sets up Jenkins CI for git repositories.

		Creates or updates the Jenkins organisation job of the git owner so that it includes the repositories,
		creates the git credential on Jenkins, registers a webhook on each repository and triggers the first build.
`)

	provisionExample = templates.Examples(`
		# Set up CI for a repository of the current git user
		%s provision --repo myrepo

		# Set up CI for repositories in an organisation on a specific Jenkins server
		%s provision --owner myorg --repo foo --repo bar --jenkins-url https://jenkins.example.com

		# Set up the Jenkins job without webhooks or an initial build
		%s provision --owner myorg --repo foo --no-webhooks --no-start
	`)
)

// Options the options for the provision command
type Options struct {
	options.BaseOptions

	Owner             string
	Repositories      []string
	Namespace         string
	GitAPIURL         string
	WebhookURL        string
	BotServiceAccount string
	CredentialID      string
	CacheDir          string
	Insecure          bool
	Timeout           time.Duration
	DisableWebhooks   bool
	DisableTrigger    bool
	JenkinsSelector   jenkinsutil.JenkinsSelectorOptions
	ScmFactory        scmhelpers.Factory
	KubeClient        kubernetes.Interface
	Input             input.Interface
	NamespaceCache    *cache.NamespaceCache
	Reporter          provision.Reporter
	Result            *provision.Result

	namespaceSpecified bool
}

// NewCmdProvision creates the provision command
func NewCmdProvision() (*cobra.Command, *Options) {
	o := &Options{}

	cmd := &cobra.Command{
		Use:     "provision",
		Aliases: []string{"setup"},
		Short:   "Sets up Jenkins CI jobs and webhooks for git repositories",
		Long:    provisionLong,
		Example: fmt.Sprintf(provisionExample, common.BinaryName, common.BinaryName, common.BinaryName),
		Run: func(cmd *cobra.Command, args []string) {
			o.Repositories = append(o.Repositories, args...)
			err := o.Run()
			helper.CheckErr(err)
		},
	}
	o.AddFlags(cmd)
	return cmd, o
}

// AddFlags adds the command flags
func (o *Options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Owner, "owner", "", "", "The git owner (user or organisation) of the repositories. Defaults to the current git user")
	cmd.Flags().StringArrayVarP(&o.Repositories, "repo", "", nil, "The names of the git repositories to set up")
	cmd.Flags().StringVarP(&o.Namespace, "namespace", "", "", "The namespace of the Jenkins server and bot secrets. Defaults to the current namespace")
	cmd.Flags().StringVarP(&o.GitAPIURL, "git-api-url", "", "", "The URL of the git provider REST API. Defaults to https://api.<git server host>")
	cmd.Flags().StringVarP(&o.WebhookURL, "webhook-url", "", "", "The URL the webhooks post to. Defaults to the github-webhook endpoint of Jenkins")
	cmd.Flags().StringVarP(&o.BotServiceAccount, "bot-service-account", "", webhooks.DefaultBotServiceAccount, "The ServiceAccount whose token is used as the webhook secret")
	cmd.Flags().StringVarP(&o.CredentialID, "credential-id", "", jenkins.DefaultCredentialID, "The id of the Jenkins credential used to access git")
	cmd.Flags().StringVarP(&o.CacheDir, "cache-dir", "", "", "The directory used to cache the namespaces of the current user. If not specified they are only cached in memory")
	cmd.Flags().BoolVarP(&o.Insecure, "insecure", "", false, "Skips verifying TLS certificates of Jenkins and the git provider")
	cmd.Flags().DurationVarP(&o.Timeout, "timeout", "", httpinvoke.DefaultTimeout, "The timeout of each HTTP request")
	cmd.Flags().BoolVarP(&o.DisableWebhooks, "no-webhooks", "", false, "Disables registering webhooks on the repositories")
	cmd.Flags().BoolVarP(&o.DisableTrigger, "no-start", "", false, "Disables triggering the first build of the organisation job")

	o.BaseOptions.AddBaseFlags(cmd)
	o.ScmFactory.AddFlags(cmd)
	o.JenkinsSelector.AddFlags(cmd)
}

// Validate validates the options and lazily creates the clients
func (o *Options) Validate() error {
	err := o.BaseOptions.Validate()
	if err != nil {
		return errors.Wrapf(err, "failed to validate base options")
	}
	if o.Input == nil {
		o.Input = inputfactory.NewInput(&o.BaseOptions)
	}

	o.namespaceSpecified = o.Namespace != ""
	o.KubeClient, o.Namespace, err = kube.LazyCreateKubeClientAndNamespace(o.KubeClient, o.Namespace)
	if err != nil {
		if o.JenkinsSelector.JenkinsURL == "" {
			return errors.Wrapf(err, "failed to create the kube client")
		}
		log.Logger().Warnf("failed to create the kube client so cannot look up secrets: %s", err.Error())
		o.KubeClient = nil
	}

	if o.ScmFactory.GitServerURL == "" {
		o.ScmFactory.GitServerURL = webhooks.DefaultGitServerURL
	}
	if o.ScmFactory.GitKind == "" {
		log.Logger().Debugf("no --git-kind supplied for server %s so assuming kind is github", o.ScmFactory.GitServerURL)
		o.ScmFactory.GitKind = "github"
	}
	if o.ScmFactory.ScmClient == nil {
		if !o.BatchMode && o.ScmFactory.Input == nil {
			o.ScmFactory.Input = o.Input
		}
		o.ScmFactory.ScmClient, err = o.ScmFactory.Create()
		if err != nil {
			return errors.Wrapf(err, "failed to create ScmClient")
		}
	}

	if o.GitAPIURL == "" {
		o.GitAPIURL, err = webhooks.APIURLForServer(o.ScmFactory.GitServerURL)
		if err != nil {
			return err
		}
	}
	if o.NamespaceCache == nil && o.KubeClient != nil {
		o.NamespaceCache = cache.NewNamespaceCache(o.CacheDir, KubeNamespaceLoader(o.KubeClient))
	}
	return nil
}

// Run implements the command
func (o *Options) Run() error {
	err := o.Validate()
	if err != nil {
		return errors.Wrapf(err, "failed to validate options")
	}
	ctx := context.Background()

	gitUsername, err := o.currentGitUser(ctx)
	if err != nil {
		return err
	}
	if o.Owner == "" {
		o.Owner, err = o.pickOwner(ctx, gitUsername)
		if err != nil {
			return err
		}
	}
	if len(o.Repositories) == 0 {
		o.Repositories, err = o.pickRepositories()
		if err != nil {
			return err
		}
	}
	if len(o.Repositories) == 0 {
		return options.MissingOption("repo")
	}
	err = o.pickNamespace(ctx, gitUsername)
	if err != nil {
		return err
	}

	server, err := jenkinsutil.FindJenkinsServer(ctx, o.KubeClient, o.Namespace, &o.JenkinsSelector)
	if err != nil {
		return errors.Wrapf(err, "failed to find the Jenkins server")
	}
	log.Logger().Infof("using Jenkins server %s at %s", termcolor.ColorInfo(server.Name), termcolor.ColorInfo(server.URL))

	botSecret := ""
	if !o.DisableWebhooks {
		botSecret, err = webhooks.FindBotSecret(ctx, KubeSecretLister(o.KubeClient), o.Namespace, o.BotServiceAccount)
		if err != nil {
			log.Logger().Warnf("using the default webhook secret: %s", err.Error())
		}
	}

	invoker := httpinvoke.NewClient(httpinvoke.Options{
		Insecure: o.Insecure,
		Timeout:  o.Timeout,
	})
	orchestrator := &provision.Orchestrator{
		Jenkins:  jenkins.NewClient(server.URL, server.AuthHeader, invoker),
		Webhooks: webhooks.NewRegistrar(invoker),
		Reporter: o.Reporter,
	}
	o.Result = orchestrator.Run(ctx, provision.Request{
		Owner:        o.Owner,
		Repositories: o.Repositories,
		Jenkins:      *server,
		GitAccount: webhooks.GitAccount{
			Username: gitUsername,
			Token:    o.ScmFactory.GitToken,
			APIURL:   o.GitAPIURL,
		},
		WebhookURL:      o.WebhookURL,
		BotSecret:       botSecret,
		CredentialID:    o.CredentialID,
		DisableWebhooks: o.DisableWebhooks,
		DisableTrigger:  o.DisableTrigger,
	})
	if !o.Result.Success {
		return errors.Wrapf(o.Result.Err, "provisioned %d of %d repositories", o.Result.Provisioned, len(o.Repositories))
	}
	log.Logger().Infof("%s for %s", o.Result.Message, termcolor.ColorInfo(scm.Join(o.Owner, strings.Join(o.Repositories, ","))))
	return nil
}

func (o *Options) currentGitUser(ctx context.Context) (string, error) {
	if o.ScmFactory.GitUsername != "" {
		return o.ScmFactory.GitUsername, nil
	}
	user, _, err := o.ScmFactory.ScmClient.Users.Find(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed to find the current git user")
	}
	if user == nil || user.Login == "" {
		return "", options.MissingOption("git-username")
	}
	o.ScmFactory.GitUsername = user.Login
	return user.Login, nil
}

// pickOwner defaults to the current user in batch mode otherwise picks the user or one of its organisations
func (o *Options) pickOwner(ctx context.Context, gitUsername string) (string, error) {
	if o.BatchMode {
		return gitUsername, nil
	}
	names := []string{gitUsername}
	orgs, _, err := o.ScmFactory.ScmClient.Organizations.List(ctx, &scm.ListOptions{Size: 500})
	if err != nil {
		log.Logger().Warnf("failed to list git organisations for user %s: %s", gitUsername, err.Error())
	}
	for _, org := range orgs {
		names = append(names, org.Name)
	}
	sort.Strings(names)

	name, err := o.Input.PickNameWithDefault(names, "git owner:", gitUsername, "pick the git owner (organisation or user) of the repositories")
	if err != nil {
		return "", errors.Wrapf(err, "failed to pick the owner")
	}
	if name == "" {
		name = gitUsername
	}
	return name, nil
}

func (o *Options) pickRepositories() ([]string, error) {
	if o.BatchMode {
		return nil, options.MissingOption("repo")
	}
	value, err := o.Input.PickValue("git repository names:", "", true, "enter the names of the repositories separated by commas")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pick the repositories")
	}
	var answer []string
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			answer = append(answer, name)
		}
	}
	return answer, nil
}

// pickNamespace lets the user confirm the namespace of the Jenkins server if it was not specified
func (o *Options) pickNamespace(ctx context.Context, gitUsername string) error {
	if o.BatchMode || o.namespaceSpecified || o.NamespaceCache == nil {
		return nil
	}
	names, err := o.NamespaceCache.Namespaces(ctx, gitUsername)
	if err != nil {
		log.Logger().Warnf("failed to list namespaces so using %s: %s", o.Namespace, err.Error())
		return nil
	}
	if len(names) == 0 {
		return nil
	}
	name, err := o.Input.PickNameWithDefault(names, "namespace of the Jenkins server:", o.Namespace, "pick the namespace containing the Jenkins server and the bot secrets")
	if err != nil {
		return errors.Wrapf(err, "failed to pick the namespace")
	}
	if name != "" {
		o.Namespace = name
	}
	return nil
}
