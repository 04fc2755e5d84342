// Package secrets detects and redacts credentials before any document body
// reaches the store.
//
// Every persisted document body — ingested chunks, notes, insights, session
// summaries, tech_stack text — passes through a Scrubber first. Scrubbing
// preserves metrics (rule IDs, counts) while redacting sensitive content, and
// is irreversible: the original text is never persisted.
package secrets
