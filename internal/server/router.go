// Package server exposes the store over a line-oriented TCP protocol,
// optionally wrapped in TLS. One line in, one line out: commands are
// space-separated words, values travel as JSON, replies start with OK or
// ERR.
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/shivammaggu/prefstore/pkg/sdk"
)

type Router struct {
	store sdk.Store
	cert  *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewRouter(s sdk.Store) *Router {
	return &Router{store: s}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Listen starts the TCP server. It blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		listener.Close()
		return nil
	}
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, 100) // Max 100 concurrent connections

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return nil
			}
			continue
		}

		// Set aggressive timeouts for light traffic to prevent resource exhaustion
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.HandleConnection(c)
		}(conn)
	}
}

// Stop closes the listener and makes Listen return.
func (r *Router) Stop() {
	r.mu.Lock()
	r.closed = true
	listener := r.listener
	r.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
}

// HandleConnection serves one client connection until it quits, times out,
// or disconnects. It is exported so tests and embedders can drive the
// protocol over connections they accepted themselves.
func (r *Router) HandleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return // Connection closed or timeout
		}

		line = strings.TrimSpace(line)
		parts := strings.Fields(line)
		if len(parts) < 1 {
			continue
		}

		command := strings.ToUpper(parts[0])

		switch command {
		case "GET":
			if len(parts) < 3 {
				continue
			}
			val, err := r.store.Get(parts[1], parts[2])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				// Send back as JSON
				res, err := json.Marshal(val)
				if err != nil {
					fmt.Fprintln(conn, "ERR internal error")
				} else {
					fmt.Fprintln(conn, "OK", string(res))
				}
			}

		case "SET":
			// The value is the raw tail after the third word, so JSON
			// strings keep their exact spacing.
			args := strings.SplitN(line, " ", 4)
			if len(args) < 4 {
				continue
			}
			var val any
			if err := json.Unmarshal([]byte(args[3]), &val); err != nil {
				fmt.Fprintln(conn, "ERR invalid json value")
				continue
			}

			err := r.store.Set(args[1], args[2], val)
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "DEL":
			if len(parts) < 3 {
				continue
			}
			err := r.store.Remove(parts[1], parts[2])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "NAMESPACES":
			list, err := r.store.Namespaces()
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				res, err := json.Marshal(list)
				if err != nil {
					fmt.Fprintln(conn, "ERR internal error")
				} else {
					fmt.Fprintln(conn, "OK", string(res))
				}
			}

		case "KEYS":
			if len(parts) < 2 {
				continue
			}
			list, err := r.store.Keys(parts[1])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				res, err := json.Marshal(list)
				if err != nil {
					fmt.Fprintln(conn, "ERR internal error")
				} else {
					fmt.Fprintln(conn, "OK", string(res))
				}
			}

		case "DUMP":
			if len(parts) < 2 {
				continue
			}
			data, err := r.store.Dump(parts[1])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				res, err := json.Marshal(data)
				if err != nil {
					fmt.Fprintln(conn, "ERR internal error")
				} else {
					fmt.Fprintln(conn, "OK", string(res))
				}
			}

		case "WIPE":
			if len(parts) < 2 {
				continue
			}
			err := r.store.Wipe(parts[1])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "MOVE":
			if len(parts) < 4 {
				continue
			}
			// MOVE src dst key
			err := r.store.Move(parts[1], parts[2], parts[3])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return
		}
	}
}
