// Package publisher builds the per-user container image and publishes it to
// the registry under a timestamped tag and "latest".
package publisher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lastnameswayne/tinypublish/db"
	"github.com/lastnameswayne/tinypublish/engine"
	"github.com/lastnameswayne/tinypublish/recipe"
	"github.com/lastnameswayne/tinypublish/registry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const pushHint = "Check that you are logged in to the registry (docker login) " +
	"and that the repository %s exists and you are allowed to push to it."

type Config struct {
	// CredentialStorePath is the engine's credential store, usually
	// ~/.docker/config.json.
	CredentialStorePath string
	// WorkDir is the build context and where the recipe is looked up.
	WorkDir    string
	RecipeName string
	AuthMarker string
	// ProjectID is baked into a generated recipe as the PROJECT_ID default.
	ProjectID string
}

func (c Config) withDefaults() Config {
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.RecipeName == "" {
		c.RecipeName = DefaultRecipeName
	}
	if c.AuthMarker == "" {
		c.AuthMarker = DefaultAuthMarker
	}
	if c.ProjectID == "" {
		c.ProjectID = recipe.DefaultProjectID
	}
	return c
}

// Reporter receives human readable progress for each step. Fail gets the
// complete error message of the run, hint included.
type Reporter interface {
	Start(msg string)
	Done(msg string)
	Fail(msg string)
	Warn(msg string)
}

type nopReporter struct{}

func (nopReporter) Start(string) {}
func (nopReporter) Done(string)  {}
func (nopReporter) Fail(string)  {}
func (nopReporter) Warn(string)  {}

// Verifier resolves a pushed reference on the registry.
type Verifier interface {
	Verify(ctx context.Context, ref string) (string, error)
}

// History records finished runs.
type History interface {
	LogPublish(ctx context.Context, r db.PublishRecord) (int64, error)
}

type Option func(*Publisher)

func WithResolver(r CredentialResolver) Option {
	return func(p *Publisher) { p.resolver = r }
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func WithReporter(r Reporter) Option {
	return func(p *Publisher) { p.report = r }
}

func WithVerifier(v Verifier) Option {
	return func(p *Publisher) { p.verifier = v }
}

func WithHistory(h History) Option {
	return func(p *Publisher) { p.history = h }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Publisher) { p.log = log }
}

type Publisher struct {
	cfg      Config
	engine   engine.Engine
	recipe   []byte
	resolver CredentialResolver
	now      func() time.Time
	report   Reporter
	verifier Verifier
	history  History
	log      logrus.FieldLogger
}

// New renders the default recipe up front so a bad template or project id
// is reported before any engine call.
func New(cfg Config, eng engine.Engine, opts ...Option) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if cfg.CredentialStorePath == "" {
		return nil, errors.New("credential store path is required")
	}

	content, err := recipe.Render(recipe.Params{ProjectID: cfg.ProjectID})
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		cfg:      cfg,
		engine:   eng,
		recipe:   content,
		resolver: StaticResolver(""),
		now:      time.Now,
		report:   nopReporter{},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Outcome is the terminal value of a run.
type Outcome struct {
	Request  Request
	State    State
	Step     Step
	Username string
	Artifact ArtifactStatus
	// Repository is {username}/{repository name}.
	Repository  string
	Refs        []string
	PullCommand string
	RunCommand  string
	// Digests maps each pushed reference to the digest the registry
	// reported. Only set when a Verifier is configured.
	Digests map[string]string
	Err     error
}

type run struct {
	p   *Publisher
	out Outcome
}

func (r *run) advance(to State) {
	r.p.log.WithFields(logrus.Fields{"from": r.out.State, "to": to}).Debug("publish state change")
	r.out.State = to
}

func (r *run) fail(kind, cause error, hint string) error {
	err := &StepError{Kind: kind, State: r.out.State, Err: cause, Hint: hint}
	r.p.report.Fail(err.Error())
	r.p.log.WithError(cause).WithField("state", r.out.State).Debug("publish failed")
	r.out.State = StateFailed
	r.out.Err = err
	return err
}

// Publish runs the pipeline for repositoryName, stopping at the first
// failing step. The returned error is also stored in Outcome.Err.
func (p *Publisher) Publish(ctx context.Context, repositoryName string) (Outcome, error) {
	started := p.now()
	r := &run{p: p, out: Outcome{Request: NewRequest(repositoryName, started), State: StateInit}}

	err := r.execute(ctx)
	p.record(ctx, r, started)
	return r.out, err
}

func (r *run) execute(ctx context.Context) error {
	p := r.p
	req := r.out.Request

	p.report.Start("Checking container engine...")
	if err := p.engine.CheckAvailable(ctx); err != nil {
		return r.fail(ErrEngineUnavailable, err, "Make sure the docker daemon is running.")
	}
	p.report.Done("Container engine is running")
	r.advance(StateEngineChecked)

	p.report.Start("Checking registry login...")
	if err := CheckCredentialStore(p.cfg.CredentialStorePath, p.cfg.AuthMarker); err != nil {
		return r.fail(ErrNotAuthenticated, err, "")
	}
	p.report.Done("Registry login found")

	username, err := r.resolveUsername(ctx)
	if err != nil {
		return err
	}
	r.out.Username = username
	r.out.Repository = req.Repository(username)
	r.out.Refs = req.Refs(username)
	r.advance(StateAuthenticated)

	recipePath := filepath.Join(p.cfg.WorkDir, p.cfg.RecipeName)
	status, err := ensureArtifact(recipePath, p.recipe)
	if err != nil {
		return r.fail(ErrWriteFailed, err, "")
	}
	r.out.Artifact = status
	if status == ArtifactCreated {
		p.report.Done(fmt.Sprintf("Created default %s", p.cfg.RecipeName))
	} else {
		p.report.Done(fmt.Sprintf("Using existing %s", p.cfg.RecipeName))
	}
	r.advance(StateArtifactReady)

	p.report.Start(fmt.Sprintf("Building image %s...", req.ImageName))
	err = p.engine.Build(ctx, engine.BuildOptions{
		ContextDir: p.cfg.WorkDir,
		Dockerfile: recipePath,
		Image:      req.ImageName,
		Labels:     map[string]string{"io.tinypublish.tag": req.Tag},
	})
	if err != nil {
		return r.fail(ErrBuildFailed, err, "")
	}
	r.out.Step = StepBuild
	p.report.Done(fmt.Sprintf("Built image %s", req.ImageName))
	r.advance(StateBuilt)

	p.report.Start("Tagging image...")
	for _, ref := range r.out.Refs {
		if _, err := registry.ParseTag(ref); err != nil {
			return r.fail(ErrTagFailed, err, "")
		}
		if err := p.engine.Tag(ctx, req.ImageName, ref); err != nil {
			return r.fail(ErrTagFailed, errors.Wrapf(err, "tagging %s", ref), "")
		}
	}
	r.out.Step = StepTag
	p.report.Done(fmt.Sprintf("Tagged %s and %s", r.out.Refs[0], r.out.Refs[1]))
	r.advance(StateTagged)

	// The latest push is attempted only after the timestamped push returns.
	// Nothing is rolled back if it fails.
	for _, ref := range r.out.Refs {
		p.report.Start(fmt.Sprintf("Pushing %s...", ref))
		if err := p.engine.Push(ctx, ref); err != nil {
			return r.fail(ErrPushFailed, errors.Wrapf(err, "pushing %s", ref), fmt.Sprintf(pushHint, r.out.Repository))
		}
		p.report.Done(fmt.Sprintf("Pushed %s", ref))
	}
	r.out.Step = StepPush
	r.advance(StatePushed)

	r.verify(ctx)

	tsRef := r.out.Refs[0]
	r.out.PullCommand = "docker pull " + tsRef
	r.out.RunCommand = fmt.Sprintf("docker run -p %d:%d -e PROJECT_ID=%s %s", recipe.Port, recipe.Port, p.cfg.ProjectID, tsRef)
	r.advance(StateDone)
	return nil
}

// resolveUsername prefers the engine's session username and falls back to
// the resolver. It never returns an empty username without an error.
func (r *run) resolveUsername(ctx context.Context) (string, error) {
	p := r.p
	username, err := p.engine.Username(ctx)
	if err != nil {
		p.log.WithError(err).Debug("engine did not report a username")
	}
	if username != "" {
		return username, nil
	}

	username, err = p.resolver.Resolve(ctx)
	if err != nil && !errors.Is(err, ErrPromptCancelled) {
		return "", r.fail(ErrNoUsername, err, "")
	}
	if username == "" {
		return "", r.fail(ErrNoUsername, err, "Pass --username or log in with docker login.")
	}
	return username, nil
}

// verify only warns. The run has already succeeded once both pushes return.
func (r *run) verify(ctx context.Context) {
	p := r.p
	if p.verifier == nil {
		return
	}
	r.out.Digests = map[string]string{}
	for _, ref := range r.out.Refs {
		p.report.Start(fmt.Sprintf("Verifying %s on registry...", ref))
		digest, err := p.verifier.Verify(ctx, ref)
		if err != nil {
			p.report.Warn(fmt.Sprintf("Could not verify %s: %v", ref, err))
			continue
		}
		r.out.Digests[ref] = digest
		p.report.Done(fmt.Sprintf("%s is %s", ref, digest))
	}
}

// record logs every run that got past the engine check. Runs that found no
// engine leave no trace on disk.
func (p *Publisher) record(ctx context.Context, r *run, started time.Time) {
	if p.history == nil {
		return
	}
	var failedAt State
	if se, ok := r.out.Err.(*StepError); ok {
		failedAt = se.State
	}
	if r.out.State == StateFailed && failedAt == StateInit {
		return
	}

	rec := db.PublishRecord{
		Repository: r.out.Request.RepositoryName,
		Tag:        r.out.Request.Tag,
		Username:   r.out.Username,
		StartedAt:  started,
		DurationMs: p.now().Sub(started).Milliseconds(),
		Step:       r.out.Step.String(),
	}
	if r.out.Repository != "" {
		rec.Repository = r.out.Repository
	}
	if r.out.Err != nil {
		rec.Error = r.out.Err.Error()
	}
	// A cancelled run still gets its record.
	if _, err := p.history.LogPublish(context.WithoutCancel(ctx), rec); err != nil {
		p.log.WithError(err).Warn("could not record publish in history")
	}
}
