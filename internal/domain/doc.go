// Package domain contains the core entities of the learning plan engine:
// plans, their ordered topics, learner enrollments, and the users and
// notifications that surround them. It also defines the four error kinds
// (validation, authorization, not found, conflict) every other layer wraps.
//
// Entities validate themselves; the pure rules that combine them live in the
// access and progress subpackages.
package domain
