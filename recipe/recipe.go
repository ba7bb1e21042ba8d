// Package recipe holds the default Dockerfile written for a per-user
// container when the working directory has none.
package recipe

import (
	"bytes"
	_ "embed"
	"regexp"
	"text/template"

	"github.com/pkg/errors"
)

// Version identifies the revision of the default template. It is stamped
// into the image as a label.
const Version = "1"

const DefaultProjectID = "default-project"

// Port is the port the default service listens on.
const Port = 8081

//go:embed Dockerfile.tmpl
var dockerfileTmpl string

var dockerfile = template.Must(template.New("Dockerfile").Option("missingkey=error").Parse(dockerfileTmpl))

// Docker treats ENV values as whitespace separated key/value pairs, so the
// project id must be a single token.
var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateProjectID accepts ids that are a single ENV token and also valid
// in a container name.
func ValidateProjectID(id string) error {
	if !projectIDPattern.MatchString(id) {
		return errors.Errorf("invalid project id %q", id)
	}
	return nil
}

type Params struct {
	ProjectID string
}

// Render returns the Dockerfile for p. An empty ProjectID renders the
// default.
func Render(p Params) ([]byte, error) {
	if p.ProjectID == "" {
		p.ProjectID = DefaultProjectID
	}
	if err := ValidateProjectID(p.ProjectID); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err := dockerfile.Execute(&buf, struct {
		Params
		Version string
	}{p, Version})
	if err != nil {
		return nil, errors.Wrap(err, "rendering Dockerfile template")
	}
	return buf.Bytes(), nil
}

// Validate renders the template with default parameters. Callers run it
// once at startup so a broken template fails before any engine call.
func Validate() error {
	_, err := Render(Params{})
	return err
}
