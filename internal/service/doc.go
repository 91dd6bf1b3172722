// Package service contains the application use cases of the learning plan
// API. It orchestrates domain objects and stores (defined in internal/store)
// to fulfil each request.
//
// Key components:
//
//   - PlanService: plans, topics, enrollments, progress and discovery. Every
//     mutation runs in one unit of work that locks the plan row first, and
//     the events it produces are emitted only after that unit commits.
//   - TopicCatalog and EnrollmentLedger: the topic and enrollment rules
//     PlanService applies inside a unit of work.
//   - UserService: registration, credential checks and the notification
//     inbox.
//
// Store errors are translated into the sentinels in errors.go, each of which
// wraps one of the domain error kinds so the API layer can map it to a status
// code with errors.Is.
package service
