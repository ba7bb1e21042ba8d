package main

import (
	"os"
	"path/filepath"

	"github.com/lastnameswayne/tinypublish/publisher"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	defaultHistoryPath = "~/.tinypublish/history.db"
	dockerConfigFile   = "config.json"
)

// defaultCredentialStore follows the docker CLI: $DOCKER_CONFIG/config.json
// when set, ~/.docker/config.json otherwise.
func defaultCredentialStore() string {
	if dir := os.Getenv("DOCKER_CONFIG"); dir != "" {
		return filepath.Join(dir, dockerConfigFile)
	}
	return filepath.Join("~", ".docker", dockerConfigFile)
}

func expandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Wrapf(err, "expanding %s", path)
	}
	return expanded, nil
}

func credentialStoreFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "credential-store",
		Value:   defaultCredentialStore(),
		Usage:   "registry credential store written by docker login",
		EnvVars: []string{"TINYPUBLISH_CREDENTIAL_STORE"},
	}
}

func historyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "history",
		Value:   defaultHistoryPath,
		Usage:   "sqlite database recording publish runs",
		EnvVars: []string{"TINYPUBLISH_HISTORY"},
	}
}

func publishFlags() []cli.Flag {
	return []cli.Flag{
		verboseFlag(),
		&cli.StringFlag{
			Name:    "workdir",
			Aliases: []string{"C"},
			Value:   ".",
			Usage:   "build context containing the Dockerfile",
		},
		credentialStoreFlag(),
		&cli.StringFlag{
			Name:    "project-id",
			Usage:   "PROJECT_ID default baked into a generated Dockerfile",
			EnvVars: []string{"PROJECT_ID"},
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "registry username to use when docker does not report one",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "resolve the pushed tags on the registry afterwards",
		},
		historyFlag(),
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "do not record this run",
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		verboseFlag(),
		&cli.StringFlag{
			Name:    "image",
			Usage:   "image to run (default {username}/{repository}:latest)",
			EnvVars: []string{"USER_CONTAINER_TEMPLATE"},
		},
		&cli.StringFlag{
			Name:  "repository",
			Value: publisher.DefaultRepository,
			Usage: "repository the image was published to",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "registry username to use when docker does not report one",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "set an environment variable, KEY=VALUE",
		},
		&cli.StringSliceFlag{
			Name:    "publish",
			Aliases: []string{"p"},
			Usage:   "publish a container port, HOST:CONTAINER",
		},
		&cli.StringSliceFlag{
			Name:  "volume",
			Usage: "bind mount a volume, HOST:CONTAINER",
		},
	}
}
