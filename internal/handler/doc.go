// Package handler implements the PingPoint HTTP API.
//
// Routes:
//
//	GET  /api/devices         all devices, sorted by MAC
//	PUT  /api/device/{mac}    update friendly_name, notes, alert_on_offline
//	GET  /api/events          recent lifecycle events, newest first
//	POST /api/scan/{source}   start a background scan (202)
//	GET  /api/export          inventory as ?format=json|yaml|ansible
//	GET  /api/config          running config with secrets redacted
//	PUT  /api/config          merge, validate, save and apply config
//	GET  /events              Server-Sent Events stream
//	GET  /healthz, /metrics
//
// Error responses return JSON with {error, details} structure.
package handler
