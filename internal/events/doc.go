// Package events provides a lightweight in-process event system that
// decouples request handlers from background task creation. Handlers emit
// task request events; the task layer subscribes and turns them into
// persisted, executable tasks.
package events
