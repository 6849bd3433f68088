package jenkinsutil

const (
	// TriggerJenkinsServerEnv the environment variable used to choose the jenkins server to trigger
	TriggerJenkinsServerEnv = "TRIGGER_JENKINS_SERVER"

	// DefaultJenkinsName the name of the Ingress and Secret of the Jenkins server if none is specified
	DefaultJenkinsName = "jenkins"

	// JenkinsSelector the default selector to find Jenkins Ingresses if there is none with the Jenkins name
	JenkinsSelector = "app=jenkins"

	// JenkinsNameLabel default label to indicate the name of the Jenkins server
	JenkinsNameLabel = "jenkins-cr"
)

var (
	// usernameKeys the secret keys which may hold the Jenkins user name
	usernameKeys = []string{"username", "jenkins-admin-user"}

	// passwordKeys the secret keys which may hold the Jenkins password or API token
	passwordKeys = []string{"password", "jenkins-admin-password"}
)
