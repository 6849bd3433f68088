package triggercmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cmd/common"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/httpinvoke"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkins"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/jenkinsutil"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras/helper"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras/templates"
	"github.com/jenkins-x/jx-helpers/v3/pkg/kube"
	"github.com/jenkins-x/jx-helpers/v3/pkg/options"
	"github.com/jenkins-x/jx-helpers/v3/pkg/termcolor"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
)

var (
	triggerLong = templates.LongDesc(`
		Triggers a build of the Jenkins organisation job of a git owner unless it is already building.
`)

	triggerExample = templates.Examples(`
		# Scan the organisation job of myorg for new repositories and branches
		%s trigger --owner myorg
	`)
)

// Options the options for the trigger command
type Options struct {
	options.BaseOptions

	Owner           string
	Namespace       string
	Insecure        bool
	Timeout         time.Duration
	JenkinsSelector jenkinsutil.JenkinsSelectorOptions
	KubeClient      kubernetes.Interface
	Result          jenkins.TriggerResult
}

// NewCmdTrigger creates the trigger command
func NewCmdTrigger() (*cobra.Command, *Options) {
	o := &Options{}

	cmd := &cobra.Command{
		Use:     "trigger",
		Short:   "Triggers a build of the Jenkins organisation job of a git owner",
		Long:    triggerLong,
		Example: fmt.Sprintf(triggerExample, common.BinaryName),
		Run: func(cmd *cobra.Command, args []string) {
			err := o.Run()
			helper.CheckErr(err)
		},
	}
	cmd.Flags().StringVarP(&o.Owner, "owner", "", "", "The git owner (user or organisation) of the organisation job")
	cmd.Flags().StringVarP(&o.Namespace, "namespace", "", "", "The namespace of the Jenkins server. Defaults to the current namespace")
	cmd.Flags().BoolVarP(&o.Insecure, "insecure", "", false, "Skips verifying the TLS certificate of Jenkins")
	cmd.Flags().DurationVarP(&o.Timeout, "timeout", "", httpinvoke.DefaultTimeout, "The timeout of each HTTP request")

	o.BaseOptions.AddBaseFlags(cmd)
	o.JenkinsSelector.AddFlags(cmd)
	return cmd, o
}

// Validate validates the options
func (o *Options) Validate() error {
	err := o.BaseOptions.Validate()
	if err != nil {
		return errors.Wrapf(err, "failed to validate base options")
	}
	if o.Owner == "" {
		return options.MissingOption("owner")
	}
	if o.JenkinsSelector.JenkinsURL != "" && o.KubeClient == nil {
		return nil
	}
	o.KubeClient, o.Namespace, err = kube.LazyCreateKubeClientAndNamespace(o.KubeClient, o.Namespace)
	if err != nil {
		return errors.Wrapf(err, "failed to create the kube client")
	}
	return nil
}

// Run implements the command
func (o *Options) Run() error {
	err := o.Validate()
	if err != nil {
		return err
	}
	ctx := context.Background()

	server, err := jenkinsutil.FindJenkinsServer(ctx, o.KubeClient, o.Namespace, &o.JenkinsSelector)
	if err != nil {
		return errors.Wrapf(err, "failed to find the Jenkins server")
	}
	client := jenkins.NewClient(server.URL, server.AuthHeader, httpinvoke.NewClient(httpinvoke.Options{
		Insecure: o.Insecure,
		Timeout:  o.Timeout,
	}))

	jobURL := client.JobURL(o.Owner)
	o.Result, err = client.TriggerIfIdle(ctx, jobURL)
	if err != nil {
		return errors.Wrapf(err, "failed to trigger %s", jobURL)
	}
	switch o.Result {
	case jenkins.Skipped:
		log.Logger().Infof("%s is already building", termcolor.ColorInfo(jobURL))
	default:
		log.Logger().Infof("triggered a build of %s", termcolor.ColorInfo(jobURL))
	}
	return nil
}
