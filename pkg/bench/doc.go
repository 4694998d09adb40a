/*
Package bench implements the benchmark coordinator (C5): the top-level
state machine that loops over servers, then over each server's applicable
operations, then over each operation's configured concurrency levels,
aggregating every measurement into a single Report.

Servers run strictly sequentially — never in parallel — because every
server is benchmarked on the same shared host; overlapping two servers
would invalidate the apples-to-apples comparison. Within a server,
operations and concurrency levels are likewise driven in the declared
order, a determinism invariant the report's entry ordering must preserve.
*/
package bench
