// Package app implements the application service layer.
//
// Service coordinates provisioning batches, cached status reads, broadcast
// stop, platform account connection, and AV cart control. It owns no domain
// rules itself; those live in provision, status, and avcart.
package app
