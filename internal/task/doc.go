// Package task implements background task processing with database-backed
// persistence and crash recovery. Tasks survive restarts: pending tasks are
// requeued on startup and tasks stuck in processing are reset to pending.
package task
