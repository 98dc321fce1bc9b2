// Package progress buffers query progress events and fans them out to
// sinks. Long CDX runs (a million records over forty endpoints) otherwise
// give no sign of life; the hub keeps reporting off the hot path so sinks
// can never stall record output.
package progress
