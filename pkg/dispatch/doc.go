/*
Package dispatch orders work per conversation.

Dispatcher maps every conversation key to one of a fixed set of shard
goroutines through a consistent hash ring. A shard drains its queue in FIFO
order, so messages of one conversation are handled in arrival order while
distinct conversations proceed in parallel.

Outbound runs message deliveries on a bounded goroutine pool, keeping the
deliveries of one key in submission order.
*/
package dispatch
