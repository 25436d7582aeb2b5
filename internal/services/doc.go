// Package services holds the error taxonomy and context annotations shared
// by the pipeline stages and their external-tool clients.
package services
