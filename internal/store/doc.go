// Package store holds the latest board snapshot for the web dashboard.
//
// The consumer loop writes a [Snapshot] after every update event; the HTTP
// server reads it for the REST API and subscribes to it for Server-Sent
// Events. Only the newest snapshot is kept.
//
//   - [Store]: storage and subscription operations
//   - [MemoryStore]: in-memory implementation with non-blocking fan-out
//   - [Snapshot]: the JSON shape served to dashboard clients
package store
