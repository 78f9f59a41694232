// Package database provides PostgreSQL connectivity and the repositories
// backing the domain interfaces: event catalog, stream registry, equipment,
// and platform credentials.
package database
