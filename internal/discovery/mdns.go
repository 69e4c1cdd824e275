// Package discovery announces the prefstore daemon on the local network via
// mDNS, so clients on the same LAN can find it without configuration.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const (
	serviceName = "_prefstore._tcp"
	domain      = "local."
)

// ErrNoDaemon is returned by Lookup when no daemon answered in time.
var ErrNoDaemon = errors.New("discovery: no daemon found")

// Announcer keeps one mDNS registration alive for the daemon's lifetime.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers a daemon instance under the prefstore service type.
func Announce(instance string, port int, txt ...string) (*Announcer, error) {
	records := append([]string{"instance=" + instance}, txt...)
	server, err := zeroconf.Register(instance, serviceName, domain, port, records, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: register: %w", err)
	}
	return &Announcer{server: server}, nil
}

// Stop withdraws the announcement.
func (a *Announcer) Stop() {
	if a == nil {
		return
	}
	a.server.Shutdown()
}

// Lookup browses the LAN for a daemon and returns the first address found
// as host:port. It gives up when ctx expires.
func Lookup(ctx context.Context) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("discovery: resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan string, 1)
	go func() {
		// Drain until the browser closes the channel; the first hit cancels
		// the browse.
		for entry := range entries {
			for _, ip := range entry.AddrIPv4 {
				select {
				case found <- net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)):
					cancel()
				default:
				}
			}
			for _, ip := range entry.AddrIPv6 {
				select {
				case found <- net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)):
					cancel()
				default:
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceName, domain, entries); err != nil {
		return "", fmt.Errorf("discovery: browse: %w", err)
	}

	select {
	case addr := <-found:
		return addr, nil
	case <-ctx.Done():
		// The find may have raced the deadline.
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		return "", ErrNoDaemon
	}
}
