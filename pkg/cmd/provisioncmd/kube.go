package provisioncmd

import (
	"context"
	"encoding/base64"
	"sort"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cache"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/webhooks"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// KubeSecretLister lists secrets via the kubernetes client encoding the data values as base64
func KubeSecretLister(kubeClient kubernetes.Interface) webhooks.SecretLister {
	if kubeClient == nil {
		return nil
	}
	return func(ctx context.Context, ns string) ([]webhooks.Secret, error) {
		list, err := kubeClient.CoreV1().Secrets(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		var answer []webhooks.Secret
		for i := range list.Items {
			item := &list.Items[i]
			s := webhooks.Secret{
				Name: item.Name,
				Data: map[string]string{},
			}
			for k, v := range item.Data {
				s.Data[k] = base64.StdEncoding.EncodeToString(v)
			}
			answer = append(answer, s)
		}
		return answer, nil
	}
}

// KubeNamespaceLoader loads the names of the namespaces via the kubernetes client
func KubeNamespaceLoader(kubeClient kubernetes.Interface) cache.NamespaceLoader {
	return func(ctx context.Context) ([]string, error) {
		list, err := kubeClient.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list namespaces")
		}
		var names []string
		for i := range list.Items {
			names = append(names, list.Items[i].Name)
		}
		sort.Strings(names)
		return names, nil
	}
}
