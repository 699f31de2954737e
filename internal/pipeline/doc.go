// Package pipeline runs one episode generation pass end to end.
//
// The orchestrator walks a fixed sequence of stages:
//
//	FETCH_HEADLINES -> EXTRACT_CONTENT -> WRITE_INTRO -> WRITE_STORY_SEGMENTS ->
//	WRITE_CONCLUSION -> SYNTHESIZE -> STITCH -> PUBLISH -> CLEANUP
//
// and ends in COMPLETE or FAILED. Stages run strictly one after another and
// stories are handled one at a time in headline order. The first failure
// aborts every later stage and is returned as a *StageError naming the
// stage. Nothing is uploaded unless every stage up to STITCH succeeded, and
// working files are removed only after a successful upload.
//
// Build wires the orchestrator from config. When runs are serialized, a
// file lock under the state directory admits one Generate at a time across
// processes; a concurrent caller gets ErrRunInProgress.
package pipeline
