// Package pipeline runs an ordered list of build stages.
//
// Each stage, when it succeeds, advances the build to a named State. The
// first fatal stage failure stops the run and moves the build to StateFailed;
// optional stages only record a warning. There is no retry and no rollback:
// whatever earlier stages wrote stays on disk.
//
//	Pending -> DirReady -> ClientBuilt -> ServerBuilt -> EntryEnsured -> Succeeded
//	   \___________\____________\_____________\______________> Failed
package pipeline
