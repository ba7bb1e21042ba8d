package registry

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/crane"
	ggcrregistry "github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	t.Run("docker hub short form", func(t *testing.T) {
		tag, err := ParseTag("alice/myapp:20261017-093000")
		require.NoError(t, err)
		assert.Equal(t, "index.docker.io", tag.RegistryStr())
		assert.Equal(t, "alice/myapp", tag.RepositoryStr())
		assert.Equal(t, "20261017-093000", tag.TagStr())
	})

	t.Run("missing tag", func(t *testing.T) {
		_, err := ParseTag("alice/myapp")
		assert.Error(t, err)
	})

	t.Run("uppercase repository", func(t *testing.T) {
		_, err := ParseTag("alice/MyApp:latest")
		assert.Error(t, err)
	})
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(ggcrregistry.New())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host := u.Host

	img, err := random.Image(256, 1)
	require.NoError(t, err)
	ref := host + "/alice/myapp:latest"
	require.NoError(t, crane.Push(img, ref))
	want, err := img.Digest()
	require.NoError(t, err)

	v := NewVerifier()

	t.Run("returns pushed digest", func(t *testing.T) {
		got, err := v.Verify(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, want.String(), got)
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := v.Verify(context.Background(), host+"/alice/myapp:missing")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "resolving"))
	})
}
