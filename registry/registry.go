// Package registry checks pushed references against the remote registry.
package registry

import (
	"context"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/pkg/errors"
)

// ParseTag validates ref as a tagged image reference. Short references such
// as "alice/app:latest" resolve against Docker Hub.
func ParseTag(ref string) (name.Tag, error) {
	tag, err := name.NewTag(ref, name.StrictValidation)
	if err != nil {
		return name.Tag{}, errors.Wrapf(err, "invalid image reference %q", ref)
	}
	return tag, nil
}

// Verifier resolves the manifest digest of pushed tags.
type Verifier struct {
	opts []remote.Option
}

// NewVerifier authenticates with the docker credential store the engine
// itself uses.
func NewVerifier(opts ...remote.Option) *Verifier {
	return &Verifier{
		opts: append([]remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}, opts...),
	}
}

// Verify returns the digest the registry reports for ref.
func (v *Verifier) Verify(ctx context.Context, ref string) (string, error) {
	tag, err := ParseTag(ref)
	if err != nil {
		return "", err
	}

	opts := append([]remote.Option{remote.WithContext(ctx)}, v.opts...)
	desc, err := remote.Head(tag, opts...)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s on %s", tag.String(), tag.RegistryStr())
	}
	if desc.Digest.String() == "" {
		return "", errors.Errorf("registry returned no digest for %s", tag.String())
	}
	return desc.Digest.String(), nil
}
