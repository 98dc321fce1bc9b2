// Package sinks holds progress.Sink implementations: structured logging for
// interactive runs and Prometheus collectors for scraped runs.
package sinks
