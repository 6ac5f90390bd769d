package model

import (
	"context"
	"net"
)

// SecurityLayer abstracts how the server's listener is opened: plain TCP
// or TLS-terminating.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a long-running network server with graceful shutdown.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}
