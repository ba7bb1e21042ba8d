package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lastnameswayne/tinypublish/engine"
	"github.com/lastnameswayne/tinypublish/publisher"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func statusAction(c *cli.Context) error {
	storePath, err := expandPath(c.String("credential-store"))
	if err != nil {
		return err
	}
	return status(c.Context, os.Stdout, engine.NewDocker(logrus.StandardLogger()), storePath)
}

// status fails only when the engine is unreachable. Login and image checks
// are informational.
func status(ctx context.Context, w io.Writer, eng engine.Engine, storePath string) error {
	if err := eng.CheckAvailable(ctx); err != nil {
		return &publisher.StepError{Kind: publisher.ErrEngineUnavailable, Err: err,
			Hint: "Could not connect to the container engine. Please ensure docker is running."}
	}

	v, err := eng.Version(ctx)
	if err != nil {
		logrus.WithError(err).Debug("could not read engine version")
	}
	fmt.Fprintf(w, "%s Container engine is accessible\n", green("✓"))
	fmt.Fprintf(w, "├── Server version: %s\n", orUnknown(v.Server))
	fmt.Fprintf(w, "└── API version:    %s\n", orUnknown(v.APIVersion))

	if err := publisher.CheckCredentialStore(storePath, publisher.DefaultAuthMarker); err != nil {
		fmt.Fprintf(w, "%s %v\n", yellow("!"), err)
	} else {
		fmt.Fprintf(w, "%s Registry login found in %s\n", green("✓"), storePath)
	}

	exists, err := eng.ImageExists(ctx, publisher.ImageName)
	switch {
	case err != nil:
		fmt.Fprintf(w, "%s Could not inspect image %s: %v\n", yellow("!"), publisher.ImageName, err)
	case exists:
		fmt.Fprintf(w, "%s Image %s is built locally\n", green("✓"), publisher.ImageName)
	default:
		fmt.Fprintf(w, "%s Image %s has not been built yet\n", yellow("!"), publisher.ImageName)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
