package provision

import (
	"github.com/jenkins-x/jx-helpers/v3/pkg/termcolor"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
)

var info = termcolor.ColorInfo

// Reporter an interface for reporting updates from the provisioning
type Reporter interface {
	// CredentialEnsured report progress
	CredentialEnsured(id, jenkinsURL string)
	// JobCreated report progress
	JobCreated(owner, repo, jobURL string)
	// JobUpdated report progress
	JobUpdated(owner, repo, jobURL string)
	// WebhookRegistered report progress
	WebhookRegistered(owner, repo, webhookURL string)
	// BuildTriggered report progress
	BuildTriggered(jobURL string)
	// BuildSkipped report progress
	BuildSkipped(jobURL string)

	// Warn report a problem which does not stop the provisioning
	Warn(message string, args ...interface{})
}

var _ Reporter = &LogReporter{}

// LogReporter default implementation to log to the console
type LogReporter struct {
}

// CredentialEnsured report progress
func (r *LogReporter) CredentialEnsured(id, jenkinsURL string) {
	log.Logger().Infof("Ensured credential %s on Jenkins %s", info(id), info(jenkinsURL))
}

// JobCreated report progress
func (r *LogReporter) JobCreated(owner, repo, jobURL string) {
	log.Logger().Infof("Created Jenkins organisation job %s for repository %s at %s", info(owner), info(repo), info(jobURL))
}

// JobUpdated report progress
func (r *LogReporter) JobUpdated(owner, repo, jobURL string) {
	log.Logger().Infof("Updated Jenkins organisation job %s with repository %s at %s", info(owner), info(repo), info(jobURL))
}

// WebhookRegistered report progress
func (r *LogReporter) WebhookRegistered(owner, repo, webhookURL string) {
	log.Logger().Infof("Created webhook on %s/%s for %s", info(owner), info(repo), info(webhookURL))
}

// BuildTriggered report progress
func (r *LogReporter) BuildTriggered(jobURL string) {
	log.Logger().Infof("Triggered a build of %s", info(jobURL))
}

// BuildSkipped report progress
func (r *LogReporter) BuildSkipped(jobURL string) {
	log.Logger().Infof("Not triggering %s as it is already building", info(jobURL))
}

// Warn report a problem which does not stop the provisioning
func (r *LogReporter) Warn(message string, args ...interface{}) {
	log.Logger().Warnf(message, args...)
}
