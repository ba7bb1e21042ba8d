// Package engine abstracts the container engine the publisher drives.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Engine is the set of engine primitives the publish pipeline and the
// project container manager need.
type Engine interface {
	// CheckAvailable returns an error if the engine cannot be reached.
	CheckAvailable(ctx context.Context) error
	// Username returns the registry username of the engine's current login
	// session, or "" if the engine does not report one.
	Username(ctx context.Context) (string, error)
	Build(ctx context.Context, opts BuildOptions) error
	Tag(ctx context.Context, source, target string) error
	Push(ctx context.Context, ref string) error
	Version(ctx context.Context) (Version, error)
	// ImageExists reports whether image is present in the local image store.
	ImageExists(ctx context.Context, image string) (bool, error)
	Pull(ctx context.Context, image string) error

	// Run creates and starts a detached container and returns its id.
	Run(ctx context.Context, opts RunOptions) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	// List returns all containers, running or not, carrying every label in
	// labels.
	List(ctx context.Context, labels map[string]string) ([]Container, error)
}

type BuildOptions struct {
	ContextDir string
	Dockerfile string
	Image      string
	Labels     map[string]string
}

type RunOptions struct {
	Name  string
	Image string
	Env   map[string]string
	// Ports maps host ports to container ports.
	Ports map[int]int
	// Volumes are passed to -v as given, "host:container".
	Volumes []string
	Labels  map[string]string
	Restart string
	Command []string
}

// Container is one entry of List.
type Container struct {
	ID        string
	Name      string
	Image     string
	State     string
	Status    string
	CreatedAt string
	Labels    map[string]string
}

func (c Container) Running() bool {
	return c.State == "running"
}

type Version struct {
	Client     string
	Server     string
	APIVersion string
}

// CommandError is returned when an engine command exits unsuccessfully.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// IsNoSuchContainer reports whether err is the engine refusing a command
// because the container does not exist.
func IsNoSuchContainer(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && strings.Contains(strings.ToLower(cmdErr.Stderr), "no such container")
}
