// Package threads serializes access to conversation threads.
//
// A thread is an ordered message history keyed by id. The Manager wraps a
// ports.ThreadStore with per-thread locks so that concurrent requests on the same
// thread never lose appended messages. Locks are reference counted and dropped
// when no caller holds them. An optional ports.DistributedLocker extends the
// guarantee across replicas sharing a store.
package threads
