package schemas

import "errors"

// -- Error Taxonomy --
//
// Only ErrValidation aborts an assessment. Every other kind is caught at its
// branch boundary and converted into an absent result or a degraded default.
var (
	// ErrValidation: neither a target URL nor a repository was supplied, or one is malformed.
	ErrValidation = errors.New("validation error")
	// ErrToolUnavailable: the load-generation binary is missing. Recovered by simulation.
	ErrToolUnavailable = errors.New("load tool unavailable")
	// ErrRunFailed: the load tool ran but produced no usable output.
	ErrRunFailed = errors.New("load run failed")
	// ErrRepoUnreachable: the repository could not be fetched.
	ErrRepoUnreachable = errors.New("repository unreachable")
	// ErrMalformedArtifact: a manifest exists but could not be parsed.
	ErrMalformedArtifact = errors.New("malformed artifact")
	// ErrNarrativeService: the narrative collaborator failed or returned nothing.
	ErrNarrativeService = errors.New("narrative service error")
	// ErrStorage: the session store rejected the write.
	ErrStorage = errors.New("storage error")
	// ErrNotFound: no session exists for the requested ID.
	ErrNotFound = errors.New("session not found")
)
