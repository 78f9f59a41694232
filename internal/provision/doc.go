// Package provision creates or updates livestream broadcasts for a batch of
// events. Provisioning is idempotent: re-running a batch updates existing
// broadcasts instead of creating duplicates, and one event's failure never
// rolls back its siblings.
package provision
