package root

import (
	"os"
	"strconv"

	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/spf13/cobra"
)

// logLevelEnv the environment variable which overrides the --verbose flag
const logLevelEnv = "JX_LOG_LEVEL"

func setLoggingLevel(cmd *cobra.Command) {
	level := logLevel(cmd)
	err := log.SetLevel(level)
	if err != nil {
		log.Logger().Errorf("Unable to set log level to %s", level)
	}
}

// logLevel returns the level from $JX_LOG_LEVEL or debug if --verbose is set
func logLevel(cmd *cobra.Command) string {
	verbose := false
	flag := cmd.Flag("verbose")
	if flag != nil {
		var err error
		verbose, err = strconv.ParseBool(flag.Value.String())
		if err != nil {
			log.Logger().Errorf("Unable to check if the verbose flag is set")
		}
	}

	level := os.Getenv(logLevelEnv)
	if level != "" {
		if verbose {
			log.Logger().Trace("The " + logLevelEnv + " environment variable took precedence over the verbose flag")
		}
		return level
	}
	if verbose {
		return "debug"
	}
	return "info"
}
