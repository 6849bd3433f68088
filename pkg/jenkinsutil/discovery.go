package jenkinsutil

import (
	"context"
	"strings"

	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
	nv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

var (
	// DefaultJenkinsSelector default selector options to use if finding Jenkins Ingresses
	DefaultJenkinsSelector = JenkinsSelectorOptions{
		Selector:  JenkinsSelector,
		NameLabel: JenkinsNameLabel,
	}
)

// FindJenkinsServer resolves the URL and credentials of the Jenkins server.
// An explicit URL wins, otherwise the Ingress of the server in the namespace is used.
// The kube client may be nil if the URL and credentials are specified
func FindJenkinsServer(ctx context.Context, kubeClient kubernetes.Interface, ns string, o *JenkinsSelectorOptions) (*JenkinsServer, error) {
	if o == nil {
		o = &DefaultJenkinsSelector
	}
	server := &JenkinsServer{
		Name:       o.Name(),
		URL:        o.JenkinsURL,
		SecretName: o.SecretName,
	}
	if server.SecretName == "" {
		server.SecretName = server.Name
	}

	if server.URL == "" {
		if kubeClient == nil {
			return nil, errors.Errorf("no Jenkins URL specified and no kubernetes client to discover Jenkins server %s", server.Name)
		}
		ing, err := findIngress(ctx, kubeClient, ns, server.Name, o)
		if err != nil {
			return nil, err
		}
		server.URL = IngressURL(ing)
		if server.URL == "" {
			return nil, errors.Errorf("no host found on Ingress %s in namespace %s", ing.Name, ns)
		}
		log.Logger().Debugf("found Jenkins server %s at %s", server.Name, server.URL)
	}

	switch {
	case o.Username != "" && o.Token != "":
		server.SetBasicAuth(o.Username, o.Token)
	case kubeClient != nil && loadSecretAuth(ctx, kubeClient, ns, server):
	case o.BearerToken != "":
		server.SetBearerToken(o.BearerToken)
	default:
		log.Logger().Warnf("no credentials found for Jenkins server %s so using anonymous access", server.Name)
	}
	return server, nil
}

func findIngress(ctx context.Context, kubeClient kubernetes.Interface, ns, name string, o *JenkinsSelectorOptions) (*nv1.Ingress, error) {
	ingresses := kubeClient.NetworkingV1().Ingresses(ns)
	ing, err := ingresses.Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return ing, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, errors.Wrapf(err, "failed to get Ingress %s in namespace %s", name, ns)
	}
	if o.Selector == "" {
		return nil, errors.Errorf("no Ingress %s in namespace %s", name, ns)
	}

	list, err := ingresses.List(ctx, metav1.ListOptions{LabelSelector: o.Selector})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list Ingresses in namespace %s with selector %s", ns, o.Selector)
	}
	for i := range list.Items {
		item := &list.Items[i]
		if o.NameLabel == "" || item.Labels[o.NameLabel] == name {
			return item, nil
		}
	}
	return nil, errors.Errorf("no Ingress %s in namespace %s and none matching selector %s", name, ns, o.Selector)
}

// IngressURL returns the URL of the first host of the Ingress. Hosts listed in the TLS section use https
func IngressURL(ing *nv1.Ingress) string {
	if ing == nil {
		return ""
	}
	for _, rule := range ing.Spec.Rules {
		if rule.Host == "" {
			continue
		}
		scheme := "http"
		for _, tls := range ing.Spec.TLS {
			for _, h := range tls.Hosts {
				if h == rule.Host {
					scheme = "https"
				}
			}
		}
		path := ""
		if rule.HTTP != nil && len(rule.HTTP.Paths) > 0 {
			path = strings.TrimSuffix(rule.HTTP.Paths[0].Path, "/")
		}
		return scheme + "://" + rule.Host + path
	}
	return ""
}

// loadSecretAuth sets the basic auth of the server from its Secret returning true if found
func loadSecretAuth(ctx context.Context, kubeClient kubernetes.Interface, ns string, server *JenkinsServer) bool {
	secret, err := kubeClient.CoreV1().Secrets(ns).Get(ctx, server.SecretName, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			log.Logger().Warnf("failed to get Secret %s in namespace %s: %s", server.SecretName, ns, err.Error())
		}
		return false
	}
	username := firstValue(secret.Data, usernameKeys)
	password := firstValue(secret.Data, passwordKeys)
	if username == "" || password == "" {
		log.Logger().Debugf("secret %s has no Jenkins user and password", server.SecretName)
		return false
	}
	server.SetBasicAuth(username, password)
	return true
}

func firstValue(data map[string][]byte, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(string(data[k])); v != "" {
			return v
		}
	}
	return ""
}
