// Package server implements the WebSocket discovery feed.
//
// Each client that connects to /scan gets its own discovery session: the
// server runs a scan, pushes every device the moment the engine delivers it,
// then sends a finished event and closes the connection normally.
//
// # Endpoints
//
//	GET /scan               WebSocket upgrade; scans the configured service types
//	GET /scan?types=a,b     same, scanning only the listed service types
//	GET /healthz            JSON status, version and number of running scans
//
// An invalid service type in ?types= is rejected with 400 before the upgrade.
//
// # Messages
//
// All messages are JSON text frames:
//
//	{"type":"device","name":"Living Room TV","ip":"192.168.1.20","discovered_at":"2024-03-01T12:00:03Z"}
//	{"type":"finished","devices":1}
//
// The feed never reports the same advertisement twice within one session.
// A client that disconnects early cancels its scan.
//
// # TLS
//
// When Config.CertPath and Config.KeyPath are both set the feed is served
// over wss:// with TLS 1.2 or newer.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Addr: "127.0.0.1:8765",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocks until SIGINT or SIGTERM
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Logging
//
// Connections and messages are logged through internal/logging. Set
// TVDISCOVERY_LOG_LEVEL=debug to see every frame sent.
package server
