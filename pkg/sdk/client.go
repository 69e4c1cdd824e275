// Package sdk provides the client-side library for interacting with a
// prefstore. It supports both remote connections via TCP/TLS and local
// embedded mode behind the same Store contract.
package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shivammaggu/prefstore/pkg/engine"
	"github.com/shivammaggu/prefstore/pkg/prefs"
)

// Client is a remote client for the prefstore daemon.
// It implements the Store interface.
type Client struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// Connect establishes a TLS-encrypted connection to a remote prefstore
// daemon. If PREFSTORE_DISABLE_TLS is set to "true", it falls back to
// plain TCP.
func Connect(addr string) (*Client, error) {
	c := &Client{addr: addr}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if os.Getenv("PREFSTORE_DISABLE_TLS") == "true" {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // The daemon serves self-signed certs for internal traffic
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}

	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Internal helper for TCP communication
func (c *Client) sendAndReceive(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	var resp string

	// Try up to 3 times with exponential backoff
	for i := 0; i < 3; i++ {
		// Ensure we have a connection
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		// Set deadlines for the operation
		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		_, err = fmt.Fprint(c.conn, cmd+"\n")
		if err == nil {
			resp, err = c.reader.ReadString('\n')
			if err == nil {
				resp = strings.TrimSpace(resp)
				if strings.HasPrefix(resp, "ERR") {
					return "", remoteError(strings.TrimPrefix(resp, "ERR "))
				}
				return resp, nil
			}
		}

		// If we got here, there was an error communicating.
		fmt.Fprintf(os.Stderr, "[prefstore sdk] Attempt %d failed: %v. Reconnecting...\n", i+1, err)

		// Force a reconnect on the next iteration
		if closeErr := c.reconnect(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "[prefstore sdk] Reconnect attempt failed: %v\n", closeErr)
		}

		// Wait before retrying (exponential backoff)
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after 3 attempts. last error: %v", err)
}

// remoteError maps wire error text back to the sentinel errors callers
// match on, so bindings over a remote store fall back to their defaults
// exactly like bindings over the embedded engine.
func remoteError(msg string) error {
	switch {
	case strings.Contains(msg, prefs.ErrNotFound.Error()):
		return prefs.ErrNotFound
	case strings.Contains(msg, engine.ErrNamespaceNotFound.Error()):
		return engine.ErrNamespaceNotFound
	case strings.Contains(msg, engine.ErrInvalidNamespace.Error()):
		return engine.ErrInvalidNamespace
	}
	return errors.New(msg)
}

func (c *Client) Get(namespace, key string) (any, error) {
	resp, err := c.sendAndReceive(fmt.Sprintf("GET %s %s", namespace, key))
	if err != nil {
		return nil, err
	}
	jsonData := strings.TrimPrefix(resp, "OK ")
	var val any
	err = json.Unmarshal([]byte(jsonData), &val)
	return val, err
}

func (c *Client) Set(namespace, key string, val any) error {
	jsonData, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = c.sendAndReceive(fmt.Sprintf("SET %s %s %s", namespace, key, string(jsonData)))
	return err
}

func (c *Client) Remove(namespace, key string) error {
	_, err := c.sendAndReceive(fmt.Sprintf("DEL %s %s", namespace, key))
	return err
}

func (c *Client) Namespaces() ([]string, error) {
	resp, err := c.sendAndReceive("NAMESPACES")
	if err != nil {
		return nil, err
	}
	jsonData := strings.TrimPrefix(resp, "OK ")
	var list []string
	err = json.Unmarshal([]byte(jsonData), &list)
	return list, err
}

func (c *Client) Keys(namespace string) ([]string, error) {
	resp, err := c.sendAndReceive(fmt.Sprintf("KEYS %s", namespace))
	if err != nil {
		return nil, err
	}
	jsonData := strings.TrimPrefix(resp, "OK ")
	var list []string
	err = json.Unmarshal([]byte(jsonData), &list)
	return list, err
}

func (c *Client) Dump(namespace string) (map[string]any, error) {
	resp, err := c.sendAndReceive(fmt.Sprintf("DUMP %s", namespace))
	if err != nil {
		return nil, err
	}
	jsonData := strings.TrimPrefix(resp, "OK ")
	var values map[string]any
	err = json.Unmarshal([]byte(jsonData), &values)
	return values, err
}

func (c *Client) Wipe(namespace string) error {
	_, err := c.sendAndReceive(fmt.Sprintf("WIPE %s", namespace))
	return err
}

func (c *Client) Move(srcNamespace, dstNamespace, key string) error {
	_, err := c.sendAndReceive(fmt.Sprintf("MOVE %s %s %s", srcNamespace, dstNamespace, key))
	return err
}

// Ping checks that the daemon is reachable and responding.
func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING")
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected ping response: %s", resp)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Namespace returns a handle pinned to one namespace on the remote store.
func (c *Client) Namespace(name string) prefs.Store {
	return &remoteScope{client: c, namespace: name}
}

// remoteScope is a scoped client that remembers its namespace.
type remoteScope struct {
	client    *Client
	namespace string
}

func (s *remoteScope) Get(key string) (any, error) {
	return s.client.Get(s.namespace, key)
}

func (s *remoteScope) Set(key string, val any) error {
	return s.client.Set(s.namespace, key, val)
}

func (s *remoteScope) Remove(key string) error {
	return s.client.Remove(s.namespace, key)
}

// --- Generics Support ---

// Get retrieves a type-safe value using Go generics.
// It handles JSON unmarshaling into the target type automatically.
func Get[T any](s Reader, namespace, key string) (T, error) {
	var target T
	val, err := s.Get(namespace, key)
	if err != nil {
		return target, err
	}

	// If it's already the right type (e.g. from the embedded engine), just return it
	if v, ok := val.(T); ok {
		return v, nil
	}

	// Otherwise, it might be a map/slice from JSON, so we re-marshal/unmarshal.
	// This is a bit slow but ensures type safety for the caller.
	bytes, err := json.Marshal(val)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(bytes, &target)
	return target, err
}

// Set stores a type-safe value using Go generics.
func Set[T any](s Writer, namespace, key string, val T) error {
	return s.Set(namespace, key, val)
}
