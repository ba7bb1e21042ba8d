package publisher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefaultAuthMarker is the substring whose presence in the credential store
// is taken as evidence of a previous registry login.
const DefaultAuthMarker = "auth"

// CheckCredentialStore treats the store as opaque: it must exist and contain
// marker.
func CheckCredentialStore(path, marker string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return errors.Errorf("credential store %s not found; run docker login first", path)
	}
	if err != nil {
		return errors.Wrap(err, "reading credential store")
	}
	if !strings.Contains(string(content), marker) {
		return errors.Errorf("credential store %s has no registry login; run docker login first", path)
	}
	return nil
}

// CredentialResolver supplies a registry username when the engine does not
// report one.
type CredentialResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// StaticResolver always answers with the same username.
type StaticResolver string

func (s StaticResolver) Resolve(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// PromptResolver asks the operator for a username. It blocks until a line
// is read, input ends, or ctx is cancelled.
type PromptResolver struct {
	In  io.Reader
	Out io.Writer
}

func NewPromptResolver(in io.Reader, out io.Writer) *PromptResolver {
	return &PromptResolver{In: in, Out: out}
}

func (p *PromptResolver) Resolve(ctx context.Context) (string, error) {
	fmt.Fprint(p.Out, "Registry username: ")

	type answer struct {
		line string
		err  error
	}
	// The read cannot be interrupted, so it runs on its own goroutine and is
	// abandoned on cancellation.
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return "", errors.Wrap(ErrPromptCancelled, ctx.Err().Error())
	case a := <-ch:
		line := strings.TrimSpace(a.line)
		if a.err != nil && line == "" {
			if a.err == io.EOF {
				return "", ErrPromptCancelled
			}
			return "", errors.Wrap(a.err, "reading username")
		}
		return line, nil
	}
}
