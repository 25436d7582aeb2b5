// Package media holds the pure policy pieces of the audio path: speech-first
// stream selection and time-based chunk planning. Subprocess execution lives
// in the service packages; everything here is deterministic and testable
// without external tools.
package media
