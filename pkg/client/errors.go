package client

import "errors"

var (
	// ErrDaemonNotRunning means nothing listens on the socket.
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied means the socket is not accessible to this user.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means the daemon does not serve the route, usually
	// because it is older than the client.
	ErrNotFound = errors.New("404 not found")
)
