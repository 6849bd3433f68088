package jenkinsutil

import (
	"os"

	"github.com/spf13/cobra"
)

// JenkinsSelectorOptions used to represent the options used to refer to a Jenkins.
// If no URL is specified the server is found via its Ingress in the current namespace
type JenkinsSelectorOptions struct {
	// JenkinsName the name of the Jenkins Ingress and Secret
	JenkinsName string

	// Selector label selector to find the Jenkins Ingresses if there is none called JenkinsName
	Selector string

	// NameLabel label the label to find the name of the Jenkins server
	NameLabel string

	// JenkinsURL the URL of the Jenkins server. If specified no Ingress lookup is done
	JenkinsURL string

	// SecretName the name of the Secret holding the admin user and password. Defaults to JenkinsName
	SecretName string

	// Username the Jenkins user name
	Username string

	// Token the API token or password of the Jenkins user
	Token string

	// BearerToken a bearer token used if there is no user name and token
	BearerToken string
}

// AddFlags add the command flags for picking the Jenkins server to work with
func (o *JenkinsSelectorOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.JenkinsName, "jenkins", "", os.Getenv(TriggerJenkinsServerEnv), "The name of the Jenkins server Ingress. Defaults to $"+TriggerJenkinsServerEnv+" or '"+DefaultJenkinsName+"'")
	cmd.Flags().StringVarP(&o.Selector, "selector", "", JenkinsSelector, "The kubernetes label selector to find the Jenkins Ingress if there is none with the Jenkins name")
	cmd.Flags().StringVarP(&o.NameLabel, "name-label", "", JenkinsNameLabel, "The kubernetes label used to specify the Jenkins server name")
	cmd.Flags().StringVarP(&o.JenkinsURL, "jenkins-url", "", "", "The URL of the Jenkins server. If not specified it is discovered from the Jenkins Ingress")
	cmd.Flags().StringVarP(&o.SecretName, "jenkins-secret", "", "", "The name of the Secret containing the Jenkins user and password. Defaults to the Jenkins name")
	cmd.Flags().StringVarP(&o.Username, "jenkins-user", "", "", "The Jenkins user name")
	cmd.Flags().StringVarP(&o.Token, "jenkins-token", "", "", "The Jenkins API token or password")
	cmd.Flags().StringVarP(&o.BearerToken, "jenkins-bearer-token", "", "", "The bearer token used to access Jenkins if there is no user and token")
}

// Name returns the name of the Jenkins server
func (o *JenkinsSelectorOptions) Name() string {
	if o.JenkinsName != "" {
		return o.JenkinsName
	}
	if name := os.Getenv(TriggerJenkinsServerEnv); name != "" {
		return name
	}
	return DefaultJenkinsName
}
