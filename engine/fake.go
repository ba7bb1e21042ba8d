package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Fake is an in-memory Engine that records every call. Errors are keyed by
// method name ("check", "username", "build", "tag", "push", "version",
// "inspect", "pull", "run", "start", "stop", "rm", "ps"); tag and push errors
// may also be keyed by "tag:<target>" or "push:<ref>" to fail a single
// reference.
type Fake struct {
	User       string
	Errors     map[string]error
	Images     map[string]bool
	Versions   Version
	Containers []Container

	Calls  []string
	Builds []BuildOptions
	Tags   [][2]string
	Pushes []string
	Pulls  []string
	Runs   []RunOptions

	nextID int
}

var _ Engine = (*Fake)(nil)

func NewFake(user string) *Fake {
	return &Fake{
		User:   user,
		Errors: map[string]error{},
		Images: map[string]bool{},
	}
}

func (f *Fake) err(keys ...string) error {
	for _, k := range keys {
		if err, ok := f.Errors[k]; ok {
			return err
		}
	}
	return nil
}

func (f *Fake) CheckAvailable(context.Context) error {
	f.Calls = append(f.Calls, "check")
	return f.err("check")
}

func (f *Fake) Username(context.Context) (string, error) {
	f.Calls = append(f.Calls, "username")
	if err := f.err("username"); err != nil {
		return "", err
	}
	return f.User, nil
}

func (f *Fake) Build(_ context.Context, opts BuildOptions) error {
	f.Calls = append(f.Calls, "build")
	if err := f.err("build"); err != nil {
		return err
	}
	f.Builds = append(f.Builds, opts)
	f.Images[opts.Image] = true
	return nil
}

func (f *Fake) Tag(_ context.Context, source, target string) error {
	f.Calls = append(f.Calls, fmt.Sprintf("tag %s %s", source, target))
	if err := f.err("tag:"+target, "tag"); err != nil {
		return err
	}
	f.Tags = append(f.Tags, [2]string{source, target})
	return nil
}

func (f *Fake) Push(_ context.Context, ref string) error {
	f.Calls = append(f.Calls, "push "+ref)
	if err := f.err("push:"+ref, "push"); err != nil {
		return err
	}
	f.Pushes = append(f.Pushes, ref)
	return nil
}

func (f *Fake) Version(context.Context) (Version, error) {
	f.Calls = append(f.Calls, "version")
	if err := f.err("version"); err != nil {
		return Version{}, err
	}
	return f.Versions, nil
}

func (f *Fake) ImageExists(_ context.Context, image string) (bool, error) {
	f.Calls = append(f.Calls, "inspect "+image)
	if err := f.err("inspect"); err != nil {
		return false, err
	}
	return f.Images[image], nil
}

func (f *Fake) Pull(_ context.Context, image string) error {
	f.Calls = append(f.Calls, "pull "+image)
	if err := f.err("pull"); err != nil {
		return err
	}
	f.Pulls = append(f.Pulls, image)
	f.Images[image] = true
	return nil
}

func (f *Fake) Run(_ context.Context, opts RunOptions) (string, error) {
	f.Calls = append(f.Calls, "run "+opts.Name)
	if err := f.err("run"); err != nil {
		return "", err
	}
	if opts.Name != "" && slices.ContainsFunc(f.Containers, func(c Container) bool { return c.Name == opts.Name }) {
		return "", &CommandError{
			Args:     []string{"docker", "run", "--name", opts.Name},
			ExitCode: 125,
			Stderr:   fmt.Sprintf("Conflict. The container name %q is already in use", "/"+opts.Name),
		}
	}
	f.Runs = append(f.Runs, opts)
	f.nextID++
	c := Container{
		ID:     fmt.Sprintf("%064x", f.nextID),
		Name:   opts.Name,
		Image:  opts.Image,
		State:  "running",
		Status: "Up Less than a second",
		Labels: maps.Clone(opts.Labels),
	}
	f.Containers = append(f.Containers, c)
	return c.ID, nil
}

func (f *Fake) find(id string) (int, error) {
	i := slices.IndexFunc(f.Containers, func(c Container) bool { return c.ID == id || c.Name == id })
	if i < 0 {
		return -1, &CommandError{Args: []string{"docker"}, ExitCode: 1, Stderr: "Error response from daemon: No such container: " + id}
	}
	return i, nil
}

func (f *Fake) Start(_ context.Context, id string) error {
	f.Calls = append(f.Calls, "start "+id)
	if err := f.err("start"); err != nil {
		return err
	}
	i, err := f.find(id)
	if err != nil {
		return err
	}
	f.Containers[i].State = "running"
	return nil
}

func (f *Fake) Stop(_ context.Context, id string) error {
	f.Calls = append(f.Calls, "stop "+id)
	if err := f.err("stop"); err != nil {
		return err
	}
	i, err := f.find(id)
	if err != nil {
		return err
	}
	f.Containers[i].State = "exited"
	return nil
}

func (f *Fake) Remove(_ context.Context, id string) error {
	f.Calls = append(f.Calls, "rm "+id)
	if err := f.err("rm"); err != nil {
		return err
	}
	i, err := f.find(id)
	if err != nil {
		return err
	}
	if f.Containers[i].Running() {
		return &CommandError{Args: []string{"docker", "rm", id}, ExitCode: 1, Stderr: "cannot remove a running container"}
	}
	f.Containers = slices.Delete(f.Containers, i, i+1)
	return nil
}

func (f *Fake) List(_ context.Context, labels map[string]string) ([]Container, error) {
	f.Calls = append(f.Calls, "ps")
	if err := f.err("ps"); err != nil {
		return nil, err
	}
	var out []Container
	for _, c := range f.Containers {
		match := true
		for k, v := range labels {
			if c.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out, nil
}
