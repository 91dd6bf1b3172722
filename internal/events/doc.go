// Package events carries facts about committed plan state from the services
// to whoever wants them, without the services knowing the consumers.
//
// The plan service emits enrollment and visibility events after its unit of
// work commits. The task package registers a handler that turns them into
// notification deliveries.
package events
