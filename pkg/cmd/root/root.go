package root

import (
	"fmt"

	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cmd/common"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cmd/provisioncmd"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cmd/triggercmd"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras/helper"
	"github.com/jenkins-x/jx-helpers/v3/pkg/cobras/templates"
	"github.com/jenkins-x/jx-helpers/v3/pkg/input"
	"github.com/jenkins-x/jx-helpers/v3/pkg/input/survey"
	"github.com/spf13/cobra"
)

const (
	provisionName = "Set up Jenkins CI for git repositories"
	triggerName   = "Trigger a build of a Jenkins organisation job"
)

var (
	actionNames = []string{
		provisionName,
		triggerName,
	}

	rootLong = templates.LongDesc(`
		Sets up Jenkins organisation jobs, credentials and git webhooks for git repositories.

`)

	rootExample = templates.Examples(`
		# Pick what to do using the wizard
		%s
	`)
)

// WizardOptions the options for the command
type WizardOptions struct {
	Input input.Interface
}

// NewCmdMain creates a command object for the command
func NewCmdMain() (*cobra.Command, *WizardOptions) {
	options := &WizardOptions{}
	cmd := &cobra.Command{
		Use:     common.BinaryName,
		Short:   "Sets up Jenkins CI jobs and webhooks for git repositories",
		Long:    rootLong,
		Example: fmt.Sprintf(rootExample, common.BinaryName),
		Run: func(cmd *cobra.Command, _ []string) {
			setLoggingLevel(cmd)
			err := options.Run()
			helper.CheckErr(err)
		},
	}

	cmd.AddCommand(cobras.SplitCommand(provisioncmd.NewCmdProvision()))
	cmd.AddCommand(cobras.SplitCommand(triggercmd.NewCmdTrigger()))
	cmd.PersistentPreRun = func(c *cobra.Command, _ []string) {
		setLoggingLevel(c)
	}
	return cmd, options
}

// Run implements the command
func (o *WizardOptions) Run() error {
	if o.Input == nil {
		o.Input = survey.NewInput()
	}

	name, err := o.Input.PickNameWithDefault(actionNames, "What would you like to do: ", "", "you can set up CI for repositories or trigger the organisation job of an owner")
	if err != nil {
		return err
	}
	switch name {
	case provisionName:
		_, w := provisioncmd.NewCmdProvision()
		return w.Run()
	case triggerName:
		_, w := triggercmd.NewCmdTrigger()
		value, err := o.Input.PickValue("git owner:", "", true, "the git owner (user or organisation) of the organisation job")
		if err != nil {
			return err
		}
		w.Owner = value
		return w.Run()
	default:
		return fmt.Errorf("unknown selection: %s", name)
	}
}
