// Package twitch talks to the Twitch Helix API: OAuth account connection,
// channel title updates, and live status polling. Twitch has no remote stop;
// a channel is live whenever its RTMP ingest receives data.
package twitch
