package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEntityExists = errors.New("entity already exists")

	// ErrInvalidConfig covers every configuration fault detected before a run
	// starts: unknown strategy names, missing assigned collaborator sets and
	// node counts too small for the chosen topology.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProtocol covers round protocol faults: gathers that return fewer
	// participants than registered, missing or malformed payloads and round
	// counter mismatches. Protocol faults are fatal for the run.
	ErrProtocol = errors.New("protocol fault")

	// ErrWeightInvariant signals a weight strategy bug: collaborator weights
	// that do not sum to one within tolerance after normalization.
	ErrWeightInvariant = errors.New("collaborator weights violate normalization invariant")
)
