// Package dashboard provides the embedded web UI assets for SensorBoard.
//
// This package uses Go's embed directive to include the dashboard HTML, CSS,
// and JavaScript at compile time. This enables single-binary deployment
// without external asset files, which matters on a device with no writable
// filesystem for static content.
//
// The embedded assets are served by the server package at the root path ("/").
// Users of the sensorboard library should not need to interact with this
// package directly.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Main dashboard page with inline CSS and JavaScript
//
// The page connects to /ws, replaces its series on every "data" message and
// appends on every "update" message.
//
//go:embed assets/*
var Assets embed.FS
