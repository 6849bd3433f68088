package testimports

import (
	"net/url"
	"testing"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cmd/provisioncmd"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/fakeservers"
	"github.com/jenkins-x/go-scm/scm"
	fakescm "github.com/jenkins-x/go-scm/scm/driver/fake"
	fakeinput "github.com/jenkins-x/jx-helpers/v3/pkg/input/fake"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	nv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

const (
	// Namespace the namespace of the fake Jenkins server
	Namespace = "jx"

	// GitUsername the current git user in tests
	GitUsername = "acme-bot"

	// GitToken the git token in tests
	GitToken = "my.fake.token"

	// BotToken the token of the bot service account used as the webhook secret
	BotToken = "my-bot-token"
)

// SetFakeClients sets the fake clients on the options. The Jenkins server is discovered via an Ingress
// pointing at the fake Jenkins and webhooks are created on the fake git provider
func SetFakeClients(t *testing.T, o *provisioncmd.Options, fj *fakeservers.Jenkins, fg *fakeservers.GitProvider) *fakescm.Data {
	o.Input = &fakeinput.FakeInput{
		Values: map[string]string{},
	}
	client, fakeScmData := fakescm.NewDefault()
	fakeScmData.CurrentUser = scm.User{Login: GitUsername}
	o.ScmFactory.ScmClient = client
	o.ScmFactory.GitToken = GitToken
	o.ScmFactory.NoWriteGitCredentialsFile = true
	o.GitAPIURL = fg.URL()

	u, err := url.Parse(fj.URL())
	require.NoError(t, err)

	o.KubeClient = fake.NewSimpleClientset(
		&corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name: Namespace,
			},
		},
		&nv1.Ingress{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "jenkins",
				Namespace: Namespace,
			},
			Spec: nv1.IngressSpec{
				Rules: []nv1.IngressRule{
					{
						Host: u.Host,
					},
				},
			},
		},
		&corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "jenkins",
				Namespace: Namespace,
			},
			Data: map[string][]byte{
				"username": []byte("admin"),
				"password": []byte("dummy-jenkins-token"),
			},
		},
		&corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "cd-bot-token-x7k2p",
				Namespace: Namespace,
			},
			Data: map[string][]byte{
				"token": []byte(BotToken),
			},
		},
	)
	o.Namespace = Namespace
	o.JenkinsSelector.JenkinsName = "jenkins"
	return fakeScmData
}
