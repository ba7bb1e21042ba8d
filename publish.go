package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lastnameswayne/tinypublish/engine"
	"github.com/lastnameswayne/tinypublish/publisher"
	"github.com/lastnameswayne/tinypublish/recipe"
	"github.com/lastnameswayne/tinypublish/registry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func publishAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return errors.Errorf("expected at most one repository name, got %d arguments", c.NArg())
	}
	if err := recipe.Validate(); err != nil {
		return err
	}

	storePath, err := expandPath(c.String("credential-store"))
	if err != nil {
		return err
	}
	cfg := publisher.Config{
		CredentialStorePath: storePath,
		WorkDir:             c.String("workdir"),
		ProjectID:           c.String("project-id"),
	}

	log := logrus.StandardLogger()
	opts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithReporter(newTerminalReporter(os.Stdout)),
		publisher.WithResolver(usernameResolver(c.String("username"), os.Stdin, os.Stdout)),
	}
	if c.Bool("verify") {
		opts = append(opts, publisher.WithVerifier(registry.NewVerifier()))
	}
	if !c.Bool("no-history") {
		h := &lazyHistory{path: c.String("history")}
		defer h.Close()
		opts = append(opts, publisher.WithHistory(h))
	}

	p, err := publisher.New(cfg, engine.NewDocker(log), opts...)
	if err != nil {
		return err
	}

	out, err := p.Publish(c.Context, c.Args().First())
	if err != nil {
		return reportedError{err}
	}
	printSummary(os.Stdout, out)
	return nil
}

// usernameResolver prompts only when a person is at the terminal. Without
// one an empty answer ends the run with ErrNoUsername instead of blocking.
func usernameResolver(username string, in *os.File, out io.Writer) publisher.CredentialResolver {
	if username != "" {
		return publisher.StaticResolver(username)
	}
	if term.IsTerminal(int(in.Fd())) {
		return publisher.NewPromptResolver(in, out)
	}
	return publisher.StaticResolver("")
}


func printSummary(w io.Writer, out publisher.Outcome) {
	fmt.Fprintf(w, "\n%s Published %s\n", green("✓"), out.Repository)
	fmt.Fprintf(w, "├── 🏷  Tags: %s, %s\n", out.Request.Tag, publisher.LatestTag)
	for _, ref := range out.Refs {
		if digest, ok := out.Digests[ref]; ok {
			fmt.Fprintf(w, "├── 🔒 %s@%s\n", ref, digest)
		}
	}
	fmt.Fprintf(w, "├── 📥 Pull: %s\n", out.PullCommand)
	fmt.Fprintf(w, "└── ▶  Run:  %s\n", out.RunCommand)
	if out.Artifact == publisher.ArtifactCreated {
		fmt.Fprintln(w, "\nA default Dockerfile was created. Edit it and publish again to ship your own service.")
	}
}
