package publisher

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ensureArtifact(t *testing.T) {
	t.Run("creates missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Dockerfile")
		status, err := ensureArtifact(path, []byte("FROM scratch\n"))
		require.NoError(t, err)
		assert.Equal(t, ArtifactCreated, status)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "FROM scratch\n", string(content))
	})

	t.Run("second call reuses", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Dockerfile")
		_, err := ensureArtifact(path, []byte("first"))
		require.NoError(t, err)

		status, err := ensureArtifact(path, []byte("second"))
		require.NoError(t, err)
		assert.Equal(t, ArtifactReused, status)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "first", string(content))
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "Dockerfile")
		_, err := ensureArtifact(path, []byte("x"))
		assert.Error(t, err)
	})
}

// shortWriter writes half of its input to the real file and then fails, like
// a disk filling up mid-write.
type shortWriter struct {
	f        io.WriteCloser
	closeErr error
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if w.closeErr != nil {
		return w.f.Write(p)
	}
	n, _ := w.f.Write(p[:len(p)/2])
	return n, errors.New("no space left on device")
}

func (w *shortWriter) Close() error {
	if err := w.f.Close(); err != nil {
		return err
	}
	return w.closeErr
}

func Test_ensureArtifactCleansUpPartialFile(t *testing.T) {
	tests := []struct {
		name     string
		closeErr error
		wantErr  string
	}{
		{"write fails", nil, "no space left on device"},
		{"close fails", errors.New("input/output error"), "input/output error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := createArtifact
			t.Cleanup(func() { createArtifact = orig })
			createArtifact = func(path string) (io.WriteCloser, error) {
				f, err := orig(path)
				if err != nil {
					return nil, err
				}
				return &shortWriter{f: f, closeErr: tt.closeErr}, nil
			}

			path := filepath.Join(t.TempDir(), "Dockerfile")
			status, err := ensureArtifact(path, []byte("FROM python:3.9-slim\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ArtifactUnknown, status)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "partial Dockerfile left behind")

			// A later run starts from scratch instead of reusing the partial file.
			createArtifact = orig
			status, err = ensureArtifact(path, []byte("FROM python:3.9-slim\n"))
			require.NoError(t, err)
			assert.Equal(t, ArtifactCreated, status)
		})
	}
}
