// Package core provides the failure model shared by every pipeline stage.
//
// Stages never decide process behaviour themselves. Each returns its result
// plus an error, and the orchestrator classifies that error with [Fail]:
//
//	report, err := decoder.Decode(ctx, archive, staging)
//	if err != nil {
//	    return core.Fail(core.KindConversion, "decode", err)
//	}
//
// # Kinds and Exit Codes
//
// The outermost [StageError] decides the exit code via [ExitCode]:
//
//   - KindConfig: 1
//   - KindRetrieval: 2
//   - KindConversion: 3
//   - KindPublish: 4
//   - KindMissingInput: 5
//   - KindPersist (and anything unclassified): 6
//   - KindLock: 7
//   - KindCancelled: 130
//
// Context cancellation always wins over the stage's own kind.
//
// # Operator Messages
//
// [MapError] turns an error into a short message, an action, and a code
// (RET, CNV, PUB, MRG, RUN). The pipeline prints these in its status lines.
package core
