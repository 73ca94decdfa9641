// Package storage persists collected documents and generated training pairs.
//
// Two drivers share one Store interface: "sqlite" (the default, a single
// database file) and "file" (a dependency-free JSONL backend). The
// orchestrator only sees the interface; the driver is a config choice.
package storage
