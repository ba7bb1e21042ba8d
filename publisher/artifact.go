package publisher

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultRecipeName is the build recipe looked up in the working directory.
const DefaultRecipeName = "Dockerfile"

type ArtifactStatus int

const (
	ArtifactUnknown ArtifactStatus = iota
	ArtifactCreated
	ArtifactReused
)

func (s ArtifactStatus) String() string {
	switch s {
	case ArtifactCreated:
		return "created"
	case ArtifactReused:
		return "reused"
	default:
		return "unknown"
	}
}

// createArtifact opens a new file for writing and fails if one exists.
var createArtifact = func(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// ensureArtifact writes content to path unless a file already exists there.
// An existing file is never modified, and a failed write leaves no file
// behind.
func ensureArtifact(path string, content []byte) (ArtifactStatus, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return ArtifactUnknown, errors.Errorf("%s is a directory", path)
		}
		return ArtifactReused, nil
	case !os.IsNotExist(err):
		return ArtifactUnknown, errors.Wrapf(err, "checking %s", path)
	}

	f, err := createArtifact(path)
	if err != nil {
		return ArtifactUnknown, errors.Wrapf(err, "creating %s", path)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return ArtifactUnknown, errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return ArtifactUnknown, errors.Wrapf(err, "closing %s", path)
	}
	return ArtifactCreated, nil
}
