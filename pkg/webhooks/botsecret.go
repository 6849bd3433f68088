package webhooks

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

const (
	// DefaultBotSecret the webhook secret used when no bot token secret can be found
	DefaultBotSecret = "secret101"

	// DefaultBotServiceAccount the service account whose token is used as the webhook secret
	DefaultBotServiceAccount = "cd-bot"

	// BotTokenKey the key of the token in the service account secret
	BotTokenKey = "token"
)

// Secret a secret whose data values are base64 encoded
type Secret struct {
	Name string
	Data map[string]string
}

// SecretLister lists the secrets in a namespace
type SecretLister func(ctx context.Context, ns string) ([]Secret, error)

// FindBotSecret returns the token of the bot service account to use as the webhook secret.
// The first secret named "<serviceAccount>-token-*" with a token key is used.
// If none matches then DefaultBotSecret is returned. If the secrets cannot be listed
// DefaultBotSecret is returned along with the error
func FindBotSecret(ctx context.Context, lister SecretLister, ns, serviceAccount string) (string, error) {
	if lister == nil {
		return DefaultBotSecret, nil
	}
	if serviceAccount == "" {
		serviceAccount = DefaultBotServiceAccount
	}
	secrets, err := lister(ctx, ns)
	if err != nil {
		return DefaultBotSecret, errors.Wrapf(err, "failed to list secrets in namespace %s", ns)
	}
	prefix := serviceAccount + "-token-"
	for _, s := range secrets {
		if !strings.HasPrefix(s.Name, prefix) {
			continue
		}
		encoded := s.Data[BotTokenKey]
		if encoded == "" {
			continue
		}
		token, err := decodeSecretValue(encoded)
		if err != nil {
			log.Logger().Warnf("failed to decode the %s of secret %s: %s", BotTokenKey, s.Name, err.Error())
			continue
		}
		log.Logger().Debugf("using the token of secret %s as the webhook secret", s.Name)
		return token, nil
	}
	log.Logger().Warnf("no %s secret found in namespace %s so using the default webhook secret", prefix+"*", ns)
	return DefaultBotSecret, nil
}

func decodeSecretValue(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(err, "invalid base64")
	}
	return string(data), nil
}
