// Package dashboard provides the embedded web UI for FlightBoard.
//
// The page subscribes to /api/sse and redraws the flight table and status
// bar on every snapshot. It is compiled into the binary so the board runs
// without external asset files.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Flight table page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
