// Package artifact resolves artifact storage keys and implements the
// head/get/put operations on top of a storage backend.
package artifact

import "errors"

// ErrMissingTeam is returned when a request names no team.
var ErrMissingTeam = errors.New("querystring should have required property 'teamId'")

// Query parameters that may carry the team, in order of precedence.
// "team" and "slug" are accepted for older clients.
const (
	ParamTeamID = "teamId"
	ParamTeam   = "team"
	ParamSlug   = "slug"
)

// Key addresses an artifact in storage: "<team>/<artifact id>".
type Key string

func (k Key) String() string {
	return string(k)
}

// TeamCandidates holds the values of the team query parameters.
// A nil field means the parameter was absent; a pointer to "" means it was
// sent empty, which still counts as present.
type TeamCandidates struct {
	TeamID *string
	Team   *string
	Slug   *string
}

// CandidatesFromQuery collects the team parameters through lookup, which
// reports whether a parameter was present (gin.Context.GetQuery fits).
func CandidatesFromQuery(lookup func(string) (string, bool)) TeamCandidates {
	get := func(name string) *string {
		if v, ok := lookup(name); ok {
			return &v
		}
		return nil
	}
	return TeamCandidates{
		TeamID: get(ParamTeamID),
		Team:   get(ParamTeam),
		Slug:   get(ParamSlug),
	}
}

// Resolve returns the first present team value.
func (c TeamCandidates) Resolve() (string, bool) {
	for _, v := range []*string{c.TeamID, c.Team, c.Slug} {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

// ResolveKey derives the storage key for artifact id within the team named
// by c. The id is used as-is, even when empty.
func ResolveKey(id string, c TeamCandidates) (Key, error) {
	team, ok := c.Resolve()
	if !ok {
		return "", ErrMissingTeam
	}
	return Key(team + "/" + id), nil
}
