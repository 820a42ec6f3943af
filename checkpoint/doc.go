// Package checkpoint persists pipeline progress so an interrupted run
// resumes from its last fully committed batch. Records are written
// with write-after-commit ordering and replaced atomically; a crash
// mid-write leaves the previous valid record intact.
package checkpoint
