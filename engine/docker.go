package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const dockerExe = "docker"

type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// Docker drives the docker CLI.
type Docker struct {
	binary string
	log    logrus.FieldLogger
	run    runFunc
}

var _ Engine = (*Docker)(nil)

func NewDocker(log logrus.FieldLogger) *Docker {
	d := &Docker{binary: dockerExe, log: log}
	d.run = d.exec
	return d
}

// exec runs the binary and returns its stdout. A non-zero exit becomes a
// *CommandError carrying stderr.
func (d *Docker) exec(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.log.WithField("args", strings.Join(args, " ")).Debug("running docker command")
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr := &CommandError{
			Args:     append([]string{d.binary}, args...),
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
		d.log.WithFields(logrus.Fields{
			"exit_code": cmdErr.ExitCode,
			"stderr":    strings.TrimSpace(cmdErr.Stderr),
		}).Debug("docker command failed")
		return stdout.Bytes(), cmdErr
	}
	return nil, errors.Wrapf(err, "running %s %s", d.binary, strings.Join(args, " "))
}

func (d *Docker) CheckAvailable(ctx context.Context) error {
	_, err := d.run(ctx, "info")
	return err
}

// Username reads the "Username:" line docker info prints for a logged in
// session.
func (d *Docker) Username(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "info")
	if err != nil {
		return "", err
	}
	return parseUsername(out), nil
}

func parseUsername(info []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "Username:"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (d *Docker) Build(ctx context.Context, opts BuildOptions) error {
	args := []string{"build", "-t", opts.Image}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	args = appendPairs(args, "--label", opts.Labels)
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	args = append(args, contextDir)

	_, err := d.run(ctx, args...)
	return err
}

func (d *Docker) Tag(ctx context.Context, source, target string) error {
	_, err := d.run(ctx, "tag", source, target)
	return err
}

func (d *Docker) Push(ctx context.Context, ref string) error {
	_, err := d.run(ctx, "push", ref)
	return err
}

func (d *Docker) ImageExists(ctx context.Context, image string) (bool, error) {
	_, err := d.run(ctx, "image", "inspect", image)
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return false, nil
	}
	return false, err
}

func (d *Docker) Pull(ctx context.Context, image string) error {
	_, err := d.run(ctx, "pull", image)
	return err
}

// Run starts a detached container. Flags are emitted in sorted order so the
// command line is stable.
func (d *Docker) Run(ctx context.Context, opts RunOptions) (string, error) {
	args := []string{"run", "-d"}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	args = appendPairs(args, "-e", opts.Env)

	hostPorts := make([]int, 0, len(opts.Ports))
	for host := range opts.Ports {
		hostPorts = append(hostPorts, host)
	}
	sort.Ints(hostPorts)
	for _, host := range hostPorts {
		args = append(args, "-p", strconv.Itoa(host)+":"+strconv.Itoa(opts.Ports[host]))
	}

	for _, v := range opts.Volumes {
		args = append(args, "-v", v)
	}
	args = appendPairs(args, "--label", opts.Labels)
	if opts.Restart != "" {
		args = append(args, "--restart", opts.Restart)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	out, err := d.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (d *Docker) Start(ctx context.Context, id string) error {
	_, err := d.run(ctx, "start", id)
	return err
}

func (d *Docker) Stop(ctx context.Context, id string) error {
	_, err := d.run(ctx, "stop", id)
	return err
}

func (d *Docker) Remove(ctx context.Context, id string) error {
	_, err := d.run(ctx, "rm", id)
	return err
}

func (d *Docker) List(ctx context.Context, labels map[string]string) ([]Container, error) {
	args := []string{"ps", "-a", "--no-trunc", "--format", "{{json .}}"}
	args = appendPairs(args, "--filter", prefixKeys("label=", labels))
	out, err := d.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseContainers(out)
}

type psLine struct {
	ID        string `json:"ID"`
	Names     string `json:"Names"`
	Image     string `json:"Image"`
	State     string `json:"State"`
	Status    string `json:"Status"`
	CreatedAt string `json:"CreatedAt"`
	Labels    string `json:"Labels"`
}

// parseContainers decodes docker ps output, one JSON object per line.
func parseContainers(out []byte) ([]Container, error) {
	var containers []Container
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ps psLine
		if err := json.Unmarshal(line, &ps); err != nil {
			return nil, errors.Wrap(err, "decoding docker ps output")
		}
		containers = append(containers, Container{
			ID:        ps.ID,
			Name:      ps.Names,
			Image:     ps.Image,
			State:     ps.State,
			Status:    ps.Status,
			CreatedAt: ps.CreatedAt,
			Labels:    parseLabels(ps.Labels),
		})
	}
	return containers, errors.Wrap(scanner.Err(), "reading docker ps output")
}

// parseLabels splits docker's "k=v,k2=v2" label rendering.
func parseLabels(s string) map[string]string {
	labels := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		labels[k] = v
	}
	return labels
}

func prefixKeys(prefix string, m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[prefix+k] = v
	}
	return out
}

// appendPairs appends flag k=v for every entry of m, sorted by key.
func appendPairs(args []string, flag string, m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, flag, k+"="+m[k])
	}
	return args
}

type versionOutput struct {
	Client struct {
		Version string `json:"Version"`
	} `json:"Client"`
	Server *struct {
		Version    string `json:"Version"`
		APIVersion string `json:"ApiVersion"`
	} `json:"Server"`
}

// Version reports "unknown" for fields the engine does not return.
func (d *Docker) Version(ctx context.Context) (Version, error) {
	out, err := d.run(ctx, "version", "--format", "{{json .}}")
	if err != nil {
		return Version{}, err
	}
	return parseVersion(out)
}

func parseVersion(out []byte) (Version, error) {
	v := Version{Client: "unknown", Server: "unknown", APIVersion: "unknown"}
	var parsed versionOutput
	if err := json.Unmarshal(bytes.TrimSpace(out), &parsed); err != nil {
		return v, errors.Wrap(err, "decoding docker version output")
	}
	if parsed.Client.Version != "" {
		v.Client = parsed.Client.Version
	}
	if parsed.Server != nil {
		if parsed.Server.Version != "" {
			v.Server = parsed.Server.Version
		}
		if parsed.Server.APIVersion != "" {
			v.APIVersion = parsed.Server.APIVersion
		}
	}
	return v, nil
}
