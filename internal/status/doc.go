// Package status derives the single human-facing display status for a
// broadcast from a platform's independently reported lifecycle and stream
// health. Pure functions only - no I/O - so the derivation table can be
// tested without any network mock.
package status
