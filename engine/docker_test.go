package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDocker returns a Docker whose commands are answered by respond
// instead of the docker binary. Every invocation is recorded in calls.
func stubDocker(respond func(args []string) ([]byte, error)) (*Docker, *[][]string) {
	calls := [][]string{}
	d := NewDocker(logrus.New())
	d.run = func(_ context.Context, args ...string) ([]byte, error) {
		calls = append(calls, args)
		return respond(args)
	}
	return d, &calls
}

func Test_parseUsername(t *testing.T) {
	t.Run("finds username line", func(t *testing.T) {
		info := []byte("Client:\n Version: 24.0.7\nServer:\n Containers: 3\n Username: alice\n Registry: https://index.docker.io/v1/\n")
		assert.Equal(t, "alice", parseUsername(info))
	})

	t.Run("no login session", func(t *testing.T) {
		info := []byte("Client:\n Version: 24.0.7\nServer:\n Containers: 3\n")
		assert.Empty(t, parseUsername(info))
	})
}

func TestDockerUsername(t *testing.T) {
	d, calls := stubDocker(func([]string) ([]byte, error) {
		return []byte(" Username: bob\n"), nil
	})

	user, err := d.Username(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bob", user)
	assert.Equal(t, [][]string{{"info"}}, *calls)
}

func TestDockerBuild(t *testing.T) {
	d, calls := stubDocker(func([]string) ([]byte, error) { return nil, nil })

	err := d.Build(context.Background(), BuildOptions{
		ContextDir: "/work",
		Dockerfile: "/work/Dockerfile",
		Image:      "per_user_container_template",
		Labels:     map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{
		"build", "-t", "per_user_container_template",
		"-f", "/work/Dockerfile",
		"--label", "a=1", "--label", "b=2",
		"/work",
	}}, *calls)
}

func TestDockerTagAndPush(t *testing.T) {
	d, calls := stubDocker(func([]string) ([]byte, error) { return nil, nil })

	require.NoError(t, d.Tag(context.Background(), "img", "alice/app:latest"))
	require.NoError(t, d.Push(context.Background(), "alice/app:latest"))
	assert.Equal(t, [][]string{
		{"tag", "img", "alice/app:latest"},
		{"push", "alice/app:latest"},
	}, *calls)
}

func TestDockerImageExists(t *testing.T) {
	t.Run("inspect succeeds", func(t *testing.T) {
		d, _ := stubDocker(func([]string) ([]byte, error) { return []byte("[{}]"), nil })
		ok, err := d.ImageExists(context.Background(), "img")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("inspect exits non-zero", func(t *testing.T) {
		d, _ := stubDocker(func(args []string) ([]byte, error) {
			return nil, &CommandError{Args: args, ExitCode: 1, Stderr: "No such image"}
		})
		ok, err := d.ImageExists(context.Background(), "img")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("binary missing", func(t *testing.T) {
		boom := errors.New("executable file not found")
		d, _ := stubDocker(func([]string) ([]byte, error) { return nil, boom })
		_, err := d.ImageExists(context.Background(), "img")
		assert.ErrorIs(t, err, boom)
	})
}

func Test_parseVersion(t *testing.T) {
	t.Run("client and server", func(t *testing.T) {
		v, err := parseVersion([]byte(`{"Client":{"Version":"24.0.7"},"Server":{"Version":"24.0.7","ApiVersion":"1.43"}}`))
		require.NoError(t, err)
		assert.Equal(t, Version{Client: "24.0.7", Server: "24.0.7", APIVersion: "1.43"}, v)
	})

	t.Run("server missing", func(t *testing.T) {
		v, err := parseVersion([]byte(`{"Client":{"Version":"24.0.7"},"Server":null}`))
		require.NoError(t, err)
		assert.Equal(t, "unknown", v.Server)
		assert.Equal(t, "unknown", v.APIVersion)
	})

	t.Run("garbage", func(t *testing.T) {
		v, err := parseVersion([]byte("not json"))
		assert.Error(t, err)
		assert.Equal(t, "unknown", v.Client)
	})
}

func TestCommandError(t *testing.T) {
	err := &CommandError{Args: []string{"docker", "push", "a/b:c"}, ExitCode: 1, Stderr: "denied: requested access\n"}
	assert.Equal(t, "docker push a/b:c exited with code 1: denied: requested access", err.Error())

	err = &CommandError{Args: []string{"docker", "info"}, ExitCode: 1}
	assert.Equal(t, "docker info exited with code 1", err.Error())
}

func TestDockerRun(t *testing.T) {
	d, calls := stubDocker(func([]string) ([]byte, error) {
		return []byte("4f2a9c\n"), nil
	})

	id, err := d.Run(context.Background(), RunOptions{
		Name:    "project-demo",
		Image:   "alice/per_user_container_template:latest",
		Env:     map[string]string{"PROJECT_ID": "demo", "DEBUG": "1"},
		Ports:   map[int]int{9090: 8081, 8081: 8081},
		Volumes: []string{"/srv/demo:/data"},
		Labels:  map[string]string{"project_id": "demo", "managed_by": "tinypublish"},
		Restart: "unless-stopped",
		Command: []string{"python", "app.py"},
	})
	require.NoError(t, err)
	assert.Equal(t, "4f2a9c", id)
	assert.Equal(t, [][]string{{
		"run", "-d", "--name", "project-demo",
		"-e", "DEBUG=1", "-e", "PROJECT_ID=demo",
		"-p", "8081:8081", "-p", "9090:8081",
		"-v", "/srv/demo:/data",
		"--label", "managed_by=tinypublish", "--label", "project_id=demo",
		"--restart", "unless-stopped",
		"alice/per_user_container_template:latest", "python", "app.py",
	}}, *calls)
}

func TestDockerLifecycle(t *testing.T) {
	d, calls := stubDocker(func([]string) ([]byte, error) { return nil, nil })
	ctx := context.Background()

	require.NoError(t, d.Pull(ctx, "img"))
	require.NoError(t, d.Start(ctx, "abc"))
	require.NoError(t, d.Stop(ctx, "abc"))
	require.NoError(t, d.Remove(ctx, "abc"))
	assert.Equal(t, [][]string{
		{"pull", "img"},
		{"start", "abc"},
		{"stop", "abc"},
		{"rm", "abc"},
	}, *calls)
}

func TestDockerList(t *testing.T) {
	out := `{"CreatedAt":"2026-10-17 09:30:05 +0000 UTC","ID":"abc","Image":"alice/app:latest","Labels":"managed_by=tinypublish,project_id=demo","Names":"project-demo","State":"running","Status":"Up 2 minutes"}
{"CreatedAt":"2026-10-16 08:00:00 +0000 UTC","ID":"def","Image":"alice/app:latest","Labels":"managed_by=tinypublish,project_id=old","Names":"project-old","State":"exited","Status":"Exited (0) 1 day ago"}
`
	d, calls := stubDocker(func([]string) ([]byte, error) { return []byte(out), nil })

	containers, err := d.List(context.Background(), map[string]string{"managed_by": "tinypublish"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{
		"ps", "-a", "--no-trunc", "--format", "{{json .}}",
		"--filter", "label=managed_by=tinypublish",
	}}, *calls)

	require.Len(t, containers, 2)
	assert.Equal(t, Container{
		ID:        "abc",
		Name:      "project-demo",
		Image:     "alice/app:latest",
		State:     "running",
		Status:    "Up 2 minutes",
		CreatedAt: "2026-10-17 09:30:05 +0000 UTC",
		Labels:    map[string]string{"managed_by": "tinypublish", "project_id": "demo"},
	}, containers[0])
	assert.True(t, containers[0].Running())
	assert.False(t, containers[1].Running())
}

func Test_parseContainers(t *testing.T) {
	t.Run("no containers", func(t *testing.T) {
		containers, err := parseContainers([]byte("\n"))
		require.NoError(t, err)
		assert.Empty(t, containers)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseContainers([]byte("CONTAINER ID   IMAGE\n"))
		assert.Error(t, err)
	})
}

func TestIsNoSuchContainer(t *testing.T) {
	assert.True(t, IsNoSuchContainer(&CommandError{Stderr: "Error response from daemon: No such container: project-x"}))
	assert.False(t, IsNoSuchContainer(&CommandError{Stderr: "permission denied"}))
	assert.False(t, IsNoSuchContainer(errors.New("No such container")))
}
