/*
Package session serializes access to conversation sessions.

Every invocation for a conversation key (inbound message, timer fire, operator
action) runs inside Manager.WithLock, so at most one step executes per key at a
time while different keys proceed in parallel. With a DistributedLocker the
exclusion extends across replicas.
*/
package session
