// Package projects runs the published image as one long-lived container per
// project and finds those containers again through their labels.
package projects

import (
	"context"
	"maps"

	"github.com/lastnameswayne/tinypublish/engine"
	"github.com/lastnameswayne/tinypublish/publisher"
	"github.com/lastnameswayne/tinypublish/recipe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	LabelProject   = "project_id"
	LabelManagedBy = "managed_by"
	ManagedBy      = "tinypublish"
	RestartPolicy  = "unless-stopped"
	// ProjectEnv is always set to the project id inside the container.
	ProjectEnv = "PROJECT_ID"
)

var (
	ErrNotFound         = errors.New("no container found")
	ErrImageUnavailable = errors.New("image is not available")
)

// ContainerName is the name of the container serving projectID.
func ContainerName(projectID string) string {
	return "project-" + projectID
}

// Action says what Run had to do to get the container running.
type Action int

const (
	Created Action = iota
	Started
	AlreadyRunning
)

func (a Action) String() string {
	switch a {
	case Started:
		return "started"
	case AlreadyRunning:
		return "already running"
	default:
		return "created"
	}
}

// Spec is the per-run configuration of a new project container. It is
// ignored when the project's container already exists.
type Spec struct {
	Env map[string]string
	// Ports maps host ports to container ports.
	Ports   map[int]int
	Volumes []string
	Command []string
}

type Result struct {
	Container engine.Container
	Action    Action
}

type Manager struct {
	eng   engine.Engine
	image string
	log   logrus.FieldLogger
}

func NewManager(eng engine.Engine, image string, log logrus.FieldLogger) *Manager {
	return &Manager{eng: eng, image: image, log: log}
}

func (m *Manager) Image() string {
	return m.image
}

// Run makes sure projectID has a running container. A running container is
// left alone, a stopped one is started, and if that fails or there is none a
// new container is created from the image, pulling it first if needed.
func (m *Manager) Run(ctx context.Context, projectID string, spec Spec) (Result, error) {
	if err := recipe.ValidateProjectID(projectID); err != nil {
		return Result{}, err
	}
	if err := m.checkEngine(ctx); err != nil {
		return Result{}, err
	}

	existing, err := m.find(ctx, projectID)
	switch {
	case err == nil:
		log := m.log.WithFields(logrus.Fields{"project": projectID, "container": existing.ID})
		if existing.Running() {
			log.Debug("project container already running")
			return Result{Container: existing, Action: AlreadyRunning}, nil
		}
		if err = m.eng.Start(ctx, existing.ID); err == nil {
			existing.State = "running"
			return Result{Container: existing, Action: Started}, nil
		}
		log.WithError(err).Warn("could not start existing container, creating a new one")
		if err := m.eng.Remove(ctx, existing.ID); err != nil && !engine.IsNoSuchContainer(err) {
			return Result{}, errors.Wrapf(err, "removing container %s", existing.Name)
		}
	case !errors.Is(err, ErrNotFound):
		return Result{}, err
	}

	return m.create(ctx, projectID, spec)
}

func (m *Manager) create(ctx context.Context, projectID string, spec Spec) (Result, error) {
	if err := m.ensureImage(ctx); err != nil {
		return Result{}, err
	}

	env := maps.Clone(spec.Env)
	if env == nil {
		env = map[string]string{}
	}
	env[ProjectEnv] = projectID

	opts := engine.RunOptions{
		Name:    ContainerName(projectID),
		Image:   m.image,
		Env:     env,
		Ports:   spec.Ports,
		Volumes: spec.Volumes,
		Labels:  projectLabels(projectID),
		Restart: RestartPolicy,
		Command: spec.Command,
	}
	id, err := m.eng.Run(ctx, opts)
	if err != nil {
		return Result{}, errors.Wrapf(err, "running container for project %s", projectID)
	}

	c, err := m.find(ctx, projectID)
	if err != nil {
		m.log.WithError(err).WithField("container", id).Warn("could not read back new container")
		c = engine.Container{ID: id, Name: opts.Name, Image: opts.Image, State: "running", Labels: opts.Labels}
	}
	return Result{Container: c, Action: Created}, nil
}

// ensureImage pulls the image when it is not in the local store.
func (m *Manager) ensureImage(ctx context.Context) error {
	exists, err := m.eng.ImageExists(ctx, m.image)
	if err != nil {
		return errors.Wrapf(err, "inspecting %s", m.image)
	}
	if exists {
		return nil
	}
	m.log.WithField("image", m.image).Info("image not found locally, pulling")
	if err := m.eng.Pull(ctx, m.image); err != nil {
		return &publisher.StepError{Kind: ErrImageUnavailable, Err: errors.Wrapf(err, "pulling %s", m.image),
			Hint: "Publish the image first or pass --image."}
	}
	return nil
}

// List returns every container this tool manages.
func (m *Manager) List(ctx context.Context) ([]engine.Container, error) {
	if err := m.checkEngine(ctx); err != nil {
		return nil, err
	}
	containers, err := m.eng.List(ctx, map[string]string{LabelManagedBy: ManagedBy})
	if err != nil {
		return nil, errors.Wrap(err, "listing containers")
	}
	return containers, nil
}

func (m *Manager) Status(ctx context.Context, projectID string) (engine.Container, error) {
	if err := m.checkEngine(ctx); err != nil {
		return engine.Container{}, err
	}
	return m.find(ctx, projectID)
}

// Stop stops and removes the project's container. It reports false when the
// container disappeared before it could be removed.
func (m *Manager) Stop(ctx context.Context, projectID string) (bool, error) {
	if err := m.checkEngine(ctx); err != nil {
		return false, err
	}
	c, err := m.find(ctx, projectID)
	if err != nil {
		return false, err
	}

	log := m.log.WithFields(logrus.Fields{"project": projectID, "container": c.ID})
	if err := m.eng.Stop(ctx, c.ID); err != nil {
		if engine.IsNoSuchContainer(err) {
			log.Warn("container vanished before it was stopped")
			return false, nil
		}
		return false, errors.Wrapf(err, "stopping %s", c.Name)
	}
	if err := m.eng.Remove(ctx, c.ID); err != nil {
		if engine.IsNoSuchContainer(err) {
			log.Warn("container vanished before it was removed")
			return false, nil
		}
		return false, errors.Wrapf(err, "removing %s", c.Name)
	}
	return true, nil
}

func (m *Manager) checkEngine(ctx context.Context) error {
	if err := m.eng.CheckAvailable(ctx); err != nil {
		return &publisher.StepError{Kind: publisher.ErrEngineUnavailable, Err: err,
			Hint: "Make sure the docker daemon is running."}
	}
	return nil
}

// find prefers the container carrying the project's name when several carry
// its label.
func (m *Manager) find(ctx context.Context, projectID string) (engine.Container, error) {
	containers, err := m.eng.List(ctx, projectLabels(projectID))
	if err != nil {
		return engine.Container{}, errors.Wrap(err, "listing containers")
	}
	if len(containers) == 0 {
		return engine.Container{}, errors.Wrapf(ErrNotFound, "project %s", projectID)
	}
	for _, c := range containers {
		if c.Name == ContainerName(projectID) {
			return c, nil
		}
	}
	return containers[0], nil
}

func projectLabels(projectID string) map[string]string {
	return map[string]string{LabelProject: projectID, LabelManagedBy: ManagedBy}
}
