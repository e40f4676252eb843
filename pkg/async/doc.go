// Package async runs fire-and-forget background work (cache writes,
// page exports) with panic recovery, timeouts and structured error logging.
package async
