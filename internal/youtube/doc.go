// Package youtube talks to the YouTube Data API v3 live endpoints: OAuth
// account connection, broadcast create/update, status polling, and remote
// stop. One connected Google account maps to one channel's broadcasts.
package youtube
