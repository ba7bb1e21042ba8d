package recipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		out, err := Render(Params{})
		require.NoError(t, err)

		content := string(out)
		assert.True(t, strings.HasPrefix(content, "# syntax=docker/dockerfile:1\n"))
		assert.Contains(t, content, "FROM python:3.9-slim")
		assert.Contains(t, content, "WORKDIR /app")
		assert.Contains(t, content, "pip install --no-cache-dir flask")
		assert.Contains(t, content, `@app.route("/")`)
		assert.Contains(t, content, `@app.route("/status")`)
		assert.Contains(t, content, "EXPOSE 8081")
		assert.Contains(t, content, "ENV PROJECT_ID=default-project")
		assert.Contains(t, content, `CMD ["python", "app.py"]`)
		assert.Contains(t, content, `io.tinypublish.recipe="1"`)
	})

	t.Run("custom project id", func(t *testing.T) {
		out, err := Render(Params{ProjectID: "proj-42"})
		require.NoError(t, err)
		assert.Contains(t, string(out), "ENV PROJECT_ID=proj-42")
		assert.NotContains(t, string(out), "default-project")
	})

	t.Run("rejects project id with whitespace", func(t *testing.T) {
		_, err := Render(Params{ProjectID: "a b"})
		assert.Error(t, err)
	})

	t.Run("is deterministic", func(t *testing.T) {
		a, err := Render(Params{})
		require.NoError(t, err)
		b, err := Render(Params{})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate())
}
