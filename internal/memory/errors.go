package memory

import "errors"

var (
	// ErrDuplicateEmotionalAppend means a second state was written for an
	// (agent, scene) key. The ledger is write-once per key; revisions are the
	// only way to change a recorded state.
	ErrDuplicateEmotionalAppend = errors.New("emotional state already recorded for this agent and scene")

	// ErrRevisionOrder means a revision targeted a scene at or after its
	// triggering scene. Revising the future is rejected.
	ErrRevisionOrder = errors.New("revision target scene must precede triggering scene")

	// ErrNoPriorState means a revision targeted a scene with no recorded
	// state for that agent. Callers log this and continue.
	ErrNoPriorState = errors.New("no emotional state recorded for revision target")

	// ErrQuestionState means a terminal question status was asked to change.
	// Transitions out of open are one-way; the record is kept for audit.
	ErrQuestionState = errors.New("question status is terminal")

	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownEntity   = errors.New("unknown entity")

	// ErrOutOfOrderScene means a digest arrived out of scene order. Digests
	// must be produced in the order scenes leave the recent buffer.
	ErrOutOfOrderScene = errors.New("digest out of scene order")
)
