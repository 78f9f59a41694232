// Package avcart controls field AV carts: the 5 RTMP stream slots on each
// cart, fire-and-forget start/stop/push-keys commands relayed through the
// cart gateway, and device heartbeats.
package avcart
