// Package workflow coordinates job processing: a single worker claims
// queued jobs, drives them through the caption and audio pipelines, and
// records every outcome in the queue store. Stage execution is resumable;
// an interrupted job is reclaimed and restarted from the beginning on the
// next daemon run.
package workflow
