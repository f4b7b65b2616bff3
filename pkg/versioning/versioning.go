// Package versioning computes the next semantic version of a release.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

// Kind is the kind of release, deciding which part of the version advances.
type Kind string

// Supported release kinds.
const (
	Major  Kind = "major"
	Minor  Kind = "minor"
	Hotfix Kind = "hotfix"
)

// Kinds lists the supported release kinds in display order.
var Kinds = []Kind{Major, Minor, Hotfix}

// ErrUnknownReleaseKind is returned for a release kind other than major, minor or hotfix.
var ErrUnknownReleaseKind = errors.New("unknown release kind")

// ParseKind validates a release kind coming from flags or configuration.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (must be one of major, minor, hotfix)", ErrUnknownReleaseKind, s)
}

// Resolve returns the version following lastTag for the given kind.
// An empty lastTag means no release exists yet and is treated as 0.0.0.
func Resolve(lastTag string, kind Kind) (*semver.Version, error) {
	switch kind {
	case Major, Minor, Hotfix:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReleaseKind, kind)
	}

	raw := strings.TrimPrefix(strings.TrimSpace(lastTag), "v")
	if raw == "" {
		raw = "0.0.0"
	}

	current, err := semver.StrictNewVersion(raw)
	if err != nil {
		// Accept short forms like "1.2".
		current, err = semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("last tag %q is not a semantic version: %w", lastTag, err)
		}
	}

	// Prerelease and build metadata never carry over: 1.2.3-rc.1 is followed by 1.2.4.
	major, minor, patch := current.Major(), current.Minor(), current.Patch()
	switch kind {
	case Major:
		return semver.New(major+1, 0, 0, "", ""), nil
	case Minor:
		return semver.New(major, minor+1, 0, "", ""), nil
	default:
		return semver.New(major, minor, patch+1, "", ""), nil
	}
}

// Tagger looks up the most recent tag reachable from a ref.
type Tagger interface {
	LatestTag(ctx context.Context, ref string) (string, error)
}

// LatestVersion resolves the next version from the latest tag reachable from ref.
// Failing to read tags is not fatal: the repository is assumed to have none.
func LatestVersion(ctx context.Context, tagger Tagger, ref string, kind Kind) (lastTag string, next *semver.Version, err error) {
	lastTag, err = tagger.LatestTag(ctx, ref)
	if err != nil {
		log.Debug().Err(err).Str("ref", ref).Msg("impossible to retrieve tags")
		log.Warn().Msg("impossible to retrieve tags, we assume there is none")
		lastTag = ""
	}

	log.Debug().Str("tag", lastTag).Str("kind", string(kind)).Msg("resolving next version")

	next, err = Resolve(lastTag, kind)
	if err != nil {
		return lastTag, nil, err
	}
	return lastTag, next, nil
}

// WithPrefix returns a Tagger that strips prefix from the tags found by t, so
// that tags like "release-1.2.0" resolve as versions.
func WithPrefix(t Tagger, prefix string) Tagger {
	return prefixTagger{tagger: t, prefix: prefix}
}

type prefixTagger struct {
	tagger Tagger
	prefix string
}

func (p prefixTagger) LatestTag(ctx context.Context, ref string) (string, error) {
	tag, err := p.tagger.LatestTag(ctx, ref)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(tag, p.prefix), nil
}
