// Package daemonctl starts and stops a detached hdmictl daemon on behalf of
// the CLI. The daemon is reached through its control socket; its PID comes
// from the status RPC, falling back to the PID file when the socket is gone.
package daemonctl
