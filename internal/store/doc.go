// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Mutating operations on a plan aggregate (the plan, its topics and its
// enrollments) run inside a unit of work obtained from TxManager.WithinTx.
// Every store handed to the callback shares that unit of work; the plan
// is locked with PlanStore.GetForUpdate before anything else is read.
package store
