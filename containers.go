package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lastnameswayne/tinypublish/engine"
	"github.com/lastnameswayne/tinypublish/projects"
	"github.com/lastnameswayne/tinypublish/publisher"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func runAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.Errorf("expected exactly one project id, got %d arguments", c.NArg())
	}
	env, err := projects.ParseEnv(c.StringSlice("env"))
	if err != nil {
		return err
	}
	ports, err := projects.ParsePorts(c.StringSlice("publish"))
	if err != nil {
		return err
	}

	eng := engine.NewDocker(logrus.StandardLogger())
	image, err := projectImage(c.Context, eng, c.String("image"), c.String("username"), c.String("repository"))
	if err != nil {
		return err
	}
	m := projects.NewManager(eng, image, logrus.StandardLogger())
	spec := projects.Spec{Env: env, Ports: ports, Volumes: c.StringSlice("volume")}
	return runProject(c.Context, newTerminalReporter(os.Stdout), m, c.Args().First(), spec)
}

// projectImage defaults to the latest tag the publish command pushes.
func projectImage(ctx context.Context, eng engine.Engine, image, username, repository string) (string, error) {
	if image != "" {
		return image, nil
	}
	if username == "" {
		u, err := eng.Username(ctx)
		if err != nil {
			logrus.WithError(err).Debug("engine did not report a username")
		}
		username = u
	}
	if username == "" {
		return "", &publisher.StepError{Kind: publisher.ErrNoUsername, Hint: "Pass --username or --image."}
	}
	return publisher.NewRequest(repository, time.Now()).LatestRef(username), nil
}

func runProject(ctx context.Context, rep *terminalReporter, m *projects.Manager, projectID string, spec projects.Spec) error {
	rep.Start(fmt.Sprintf("Starting container for project %s...", projectID))
	res, err := m.Run(ctx, projectID, spec)
	if err != nil {
		rep.Fail(err.Error())
		return reportedError{err}
	}

	switch res.Action {
	case projects.AlreadyRunning:
		rep.Done(fmt.Sprintf("Container %s is already running", res.Container.Name))
	case projects.Started:
		rep.Done(fmt.Sprintf("Restarted container %s", res.Container.Name))
	default:
		rep.Done(fmt.Sprintf("Created container %s from %s", res.Container.Name, m.Image()))
	}
	fmt.Fprintf(rep.out, "└── ID: %s\n", shortID(res.Container.ID))
	return nil
}

func psAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return errors.Errorf("expected at most one project id, got %d arguments", c.NArg())
	}
	m := projects.NewManager(engine.NewDocker(logrus.StandardLogger()), "", logrus.StandardLogger())
	return listProjects(c.Context, os.Stdout, m, c.Args().First())
}

// listProjects shows every managed container, or only projectID's when set.
func listProjects(ctx context.Context, w io.Writer, m *projects.Manager, projectID string) error {
	if projectID == "" {
		containers, err := m.List(ctx)
		if err != nil {
			return err
		}
		printContainers(w, containers)
		return nil
	}
	c, err := m.Status(ctx, projectID)
	if err != nil {
		return err
	}
	printContainers(w, []engine.Container{c})
	return nil
}

func printContainers(w io.Writer, containers []engine.Container) {
	if len(containers) == 0 {
		fmt.Fprintln(w, "No project containers.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tPROJECT\tCONTAINER\tIMAGE\tSTATUS\tCREATED")
	for _, c := range containers {
		mark := green("●")
		if !c.Running() {
			mark = yellow("○")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, c.Labels[projects.LabelProject], shortID(c.ID), c.Image, c.Status, c.CreatedAt)
	}
	tw.Flush()
}

func stopAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.Errorf("expected exactly one project id, got %d arguments", c.NArg())
	}
	m := projects.NewManager(engine.NewDocker(logrus.StandardLogger()), "", logrus.StandardLogger())
	return stopProject(c.Context, os.Stdout, m, c.Args().First())
}

func stopProject(ctx context.Context, w io.Writer, m *projects.Manager, projectID string) error {
	removed, err := m.Stop(ctx, projectID)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(w, "%s Container for project %s was already gone\n", yellow("!"), projectID)
		return nil
	}
	fmt.Fprintf(w, "%s Stopped and removed container for project %s\n", green("✓"), projectID)
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
