// Package queue persists transcription jobs in SQLite and enforces the job
// state machine. One row per video id; chunk bookkeeping rides alongside in a
// child table so interrupted multi-chunk transcriptions can resume.
package queue
