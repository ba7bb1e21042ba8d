package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		if msg := exitMessage(err); msg != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), msg)
		}
		os.Exit(1)
	}
}

// reportedError is an error the terminal reporter has already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func exitMessage(err error) string {
	var reported reportedError
	if errors.As(err, &reported) {
		return ""
	}
	return err.Error()
}

func newApp() *cli.App {
	app := &cli.App{
		Name:  "tinypublish",
		Usage: "build the per-user container image, push it to your registry and run it per project",
	}

	app.Commands = []*cli.Command{
		{
			Name:      "publish",
			Usage:     "build, tag and push the image",
			ArgsUsage: "[repositoryName]",
			Flags:     publishFlags(),
			Before:    configureLogging,
			Action:    publishAction,
		},
		{
			Name:   "status",
			Usage:  "check the container engine and registry login",
			Flags:  []cli.Flag{verboseFlag(), credentialStoreFlag()},
			Before: configureLogging,
			Action: statusAction,
		},
		{
			Name:  "history",
			Usage: "list recent publish runs",
			Flags: []cli.Flag{
				verboseFlag(),
				historyFlag(),
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "number of runs to show"},
			},
			Before: configureLogging,
			Action: historyAction,
		},
		{
			Name:      "run",
			Usage:     "run the published image as the container of a project",
			ArgsUsage: "<projectID>",
			Flags:     runFlags(),
			Before:    configureLogging,
			Action:    runAction,
		},
		{
			Name:      "ps",
			Usage:     "list project containers",
			ArgsUsage: "[projectID]",
			Flags:     []cli.Flag{verboseFlag()},
			Before:    configureLogging,
			Action:    psAction,
		},
		{
			Name:      "stop",
			Usage:     "stop and remove the container of a project",
			ArgsUsage: "<projectID>",
			Flags:     []cli.Flag{verboseFlag()},
			Before:    configureLogging,
			Action:    stopAction,
		},
	}
	return app
}

// configureLogging runs after the command's own flags are parsed, so
// --verbose works wherever the command accepts it.
func configureLogging(c *cli.Context) error {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	if c.Bool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log engine commands and state changes",
		EnvVars: []string{"TINYPUBLISH_VERBOSE"},
	}
}
