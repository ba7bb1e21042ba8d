package publisher

import (
	"fmt"
	"time"
)

const (
	// DefaultRepository is used when no repository name is given.
	DefaultRepository = "per_user_container_template"
	// ImageName is the local name of the built image.
	ImageName = "per_user_container_template"
	// LatestTag is applied alongside the timestamped tag.
	LatestTag = "latest"
	// TagLayout formats the timestamped tag as YYYYMMDD-HHMMSS.
	TagLayout = "20060102-150405"
)

// Request is the resolved configuration of one publish run. It is computed
// once at the start of a run and not modified afterwards.
type Request struct {
	RepositoryName string
	ImageName      string
	Tag            string
}

// NewRequest uses repositoryName verbatim when it is non-empty. A name the
// registry rejects fails later at the tag step.
func NewRequest(repositoryName string, now time.Time) Request {
	if repositoryName == "" {
		repositoryName = DefaultRepository
	}
	return Request{
		RepositoryName: repositoryName,
		ImageName:      ImageName,
		Tag:            now.Format(TagLayout),
	}
}

// Repository is the remote repository the image is pushed to.
func (r Request) Repository(username string) string {
	return fmt.Sprintf("%s/%s", username, r.RepositoryName)
}

func (r Request) TimestampRef(username string) string {
	return r.Repository(username) + ":" + r.Tag
}

func (r Request) LatestRef(username string) string {
	return r.Repository(username) + ":" + LatestTag
}

// Refs returns the references in push order.
func (r Request) Refs(username string) []string {
	return []string{r.TimestampRef(username), r.LatestRef(username)}
}
