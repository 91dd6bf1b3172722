// Package task runs best-effort background work off the request path.
//
// Events emitted by the plan service are turned into notification tasks by
// NotificationEventHandler and pushed onto a bounded TaskQueue. A WorkerPool
// drains the queue. When the queue is full the task is dropped and logged;
// nothing here is persisted or retried across restarts.
package task
