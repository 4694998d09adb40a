/*
Package lifecycle is the per-server state machine (C4): launch the external
"up" recipe, poll readiness, reset state between operations, and guarantee
the "down" recipe runs exactly once on every exit path.

	Created → Launching → Ready → Operating → ShuttingDown → Stopped
	                 ↓                             ↑
	               Failed ─────────────────────────┘

Launch and Shutdown invoke shell recipes as opaque child processes — their
internal implementation (Docker Compose, a VM, a bare binary) is not this
package's concern. Shutdown escalates from SIGTERM to SIGKILL if the down
recipe does not exit within its grace period, mirroring the graceful-then-
forced container teardown pattern used elsewhere in this codebase.
*/
package lifecycle
