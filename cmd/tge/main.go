// Command tge inspects and operates the vesting and crowdsale configuration of a
// token generation event.
//
// Usage:
//
//	tge --config launchpad.yaml --env mainnet schedule --vesting team --amount 1000
//	tge --config launchpad.yaml --env mainnet quote --sale seed-round --token 0x... --amount 250
//	tge --config launchpad.yaml --env mainnet migrate --output migrations
//	tge --config launchpad.yaml --env mainnet migrate --apply
//	tge --config launchpad.yaml --env mainnet metrics --addr :9090
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/logging"
)

const (
	configFlagName   = "config"
	envFlagName      = "env"
	logLevelFlagName = "log-level"
	logColorFlagName = "log-color"
)

var (
	configFlag = cli.StringFlag{
		Name:  configFlagName + ", c",
		Value: "launchpad.yaml",
		Usage: "Path to the launch configuration file",
	}
	envFlag = cli.StringFlag{
		Name:  envFlagName + ", e",
		Usage: "Environment to use (may be omitted when the file defines only one)",
	}
	logLevelFlag = cli.StringFlag{
		Name:  logLevelFlagName,
		Value: "info",
		Usage: "Log level: trace, debug, info, warn, or error",
	}
	logColorFlag = cli.BoolFlag{
		Name:  logColorFlagName,
		Usage: "Colorize log output",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tge"
	app.Usage = "vesting schedules, crowdsale quotes, and ledger operations"
	app.Flags = []cli.Flag{configFlag, envFlag, logLevelFlag, logColorFlag}
	app.Commands = []cli.Command{
		migrateCommand,
		scheduleCommand,
		quoteCommand,
		metricsCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvironment loads the environment selected by the global flags.
func loadEnvironment(c *cli.Context) (*config.Environment, error) {
	f, err := config.Load(c.GlobalString(configFlagName))
	if err != nil {
		return nil, err
	}

	name := c.GlobalString(envFlagName)
	if name == "" {
		names := f.Names()
		if len(names) != 1 {
			return nil, fmt.Errorf("--env is required: %s defines %v", c.GlobalString(configFlagName), names)
		}
		name = names[0]
	}
	return f.Environment(name)
}

func newLogger(c *cli.Context) (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.GlobalString(logLevelFlagName))
	if err != nil {
		return nil, err
	}
	w := c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	return logging.NewTerminal(w, level, c.GlobalBool(logColorFlagName)), nil
}
