package jenkins

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jenkins-x/jx-helpers/v3/pkg/stringhelpers"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

// TriggerResult what happened when triggering a build
type TriggerResult string

const (
	// Triggered a new build was requested
	Triggered TriggerResult = "Triggered"

	// Skipped a build was already running so no new build was requested
	Skipped TriggerResult = "Skipped"

	// TriggerFailed the trigger request failed
	TriggerFailed TriggerResult = "Failed"
)

// LastBuild fetches the JSON status of the last build of the job
func (c *Client) LastBuild(ctx context.Context, jobURL string) (map[string]interface{}, error) {
	lastBuildURL := stringhelpers.UrlJoin(jobURL, "lastBuild/api/json")
	resp, err := c.Invoker.Do(ctx, http.MethodGet, lastBuildURL, c.headers(""), nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(resp.Body)) == "" {
		return nil, errors.Errorf("empty response from %s", lastBuildURL)
	}
	answer := map[string]interface{}{}
	err = json.Unmarshal(resp.Body, &answer)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse the JSON from %s", lastBuildURL)
	}
	return answer, nil
}

// IsBuilding returns true if the job has a build running. Failing to find out counts as not building
func (c *Client) IsBuilding(ctx context.Context, jobURL string) bool {
	lastBuild, err := c.LastBuild(ctx, jobURL)
	if err != nil {
		log.Logger().Debugf("could not load the last build of %s so assuming it is idle: %s", jobURL, err.Error())
		return false
	}
	building, ok := lastBuild["building"].(bool)
	log.Logger().Debugf("got last build of %s with building: %v", jobURL, lastBuild["building"])
	return ok && building
}

// TriggerIfIdle triggers a build of the job unless one is already running
func (c *Client) TriggerIfIdle(ctx context.Context, jobURL string) (TriggerResult, error) {
	if c.IsBuilding(ctx, jobURL) {
		log.Logger().Infof("build of %s is already running so not triggering another one", jobURL)
		return Skipped, nil
	}

	triggerURL := stringhelpers.UrlJoin(jobURL, "build") + "?delay=0"
	log.Logger().Infof("triggering Jenkins build: %s", triggerURL)
	resp, err := c.Invoker.Do(ctx, http.MethodPost, triggerURL, c.headers(""), nil)
	if err != nil {
		return TriggerFailed, errors.Wrapf(err, "failed to trigger job %s", triggerURL)
	}
	log.Logger().Debugf("got response code from Jenkins: %d from URL: %s", resp.StatusCode, resp.URL)
	return Triggered, nil
}
