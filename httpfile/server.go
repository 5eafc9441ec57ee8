// Package httpfile is a trivial single-route-per-file HTTP/1.1 server: the
// printer fetches its slice file from here during an upload. It is a
// hand-rolled socket reader in the mold of the broker's own conn.go, not a
// routed HTTP stack — the printer's firmware expects exact wire behavior
// (Etag, no chunked encoding, literal 404 response) that a framework would
// paper over.
package httpfile

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const readBufferSize = 1024 * 1024

var stat = struct {
	Requests   prometheus.Counter
	NotFound   prometheus.Counter
	ByteServed prometheus.Counter
}{
	Requests:   promauto.NewCounter(prometheus.CounterOpts{Name: "httpfile_requests", Help: "The total number of requests handled"}),
	NotFound:   promauto.NewCounter(prometheus.CounterOpts{Name: "httpfile_not_found", Help: "The total number of requests for unregistered paths"}),
	ByteServed: promauto.NewCounter(prometheus.CounterOpts{Name: "httpfile_sent_bytes", Help: "The total number of file bytes served"}),
}

// Route is what a registered path serves: an absolute file path plus its
// precomputed size and lowercase hex MD5. These never change for the
// lifetime of a registration.
type Route struct {
	FilePath string
	Size     int64
	MD5      string
}

// Server is the embedded file server. Its route table is shared between
// the orchestrator (which registers/unregisters routes) and in-flight
// request handlers (which only read it), guarded by mu.
type Server struct {
	mu     sync.RWMutex
	routes map[string]Route

	ln net.Listener
}

func NewServer() *Server {
	return &Server{routes: make(map[string]Route)}
}

// RegisterFile computes size and MD5 by streaming filePath once and adds
// path → Route. Registering the same path twice recomputes the route;
// the result is identical as long as the underlying file hasn't changed
// out from under the controller.
func (s *Server) RegisterFile(path, filePath string) (Route, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Route{}, err
	}
	defer f.Close()

	h := md5.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Route{}, err
	}

	route := Route{FilePath: filePath, Size: size, MD5: hex.EncodeToString(h.Sum(nil))}

	s.mu.Lock()
	s.routes[path] = route
	s.mu.Unlock()

	return route, nil
}

// Unregister removes path from the route table. It is atomic with respect
// to in-progress handlers: a handler that already looked up the route
// keeps serving it; a handler that hasn't looked it up yet sees it gone.
func (s *Server) Unregister(path string) {
	s.mu.Lock()
	delete(s.routes, path)
	s.mu.Unlock()
}

func (s *Server) lookup(path string) (Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	route, ok := s.routes[path]
	return route, ok
}

// Addr is the bound listener's address; callers read the port out of it
// once ListenAndServe has started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ListenAndServe binds hostPort (use ":0" for an ephemeral port) and
// serves until the listener is closed via Close.
func (s *Server) ListenAndServe(hostPort string) error {
	ln, err := net.Listen("tcp", hostPort)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log.Printf("httpfile serve: %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

func (s *Server) Close() error {
	s.mu.RLock()
	ln := s.ln
	s.mu.RUnlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

// handle reads one request line, ignores headers, and writes the response
// in the fixed shape the printer expects. Client disconnection mid-write
// is logged and otherwise ignored; a read or file error aborts the
// connection so the printer observes the failure as a transport error.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		log.Printf("httpfile: reading request line: %v", err)
		return
	}
	// Drain the remaining headers up through the blank line; this
	// controller never inspects them.
	for {
		hdr, err := r.ReadString('\n')
		if err != nil || strings.TrimRight(hdr, "\r\n") == "" {
			break
		}
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		log.Printf("httpfile: malformed request line %q", line)
		return
	}
	method, path := fields[0], fields[1]
	stat.Requests.Inc()

	route, ok := s.lookup(path)
	if !ok {
		stat.NotFound.Inc()
		io.WriteString(conn, "HTTP/1.1 404 Not Found\r\n\r\n")
		return
	}

	var header bytes.Buffer
	fmt.Fprintf(&header, "HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&header, "Content-Type: application/octet-stream\r\n")
	fmt.Fprintf(&header, "Etag: %s\r\n", route.MD5)
	fmt.Fprintf(&header, "Content-Length: %d\r\n", route.Size)
	header.WriteString("\r\n")
	if _, err := conn.Write(header.Bytes()); err != nil {
		return
	}

	if method == "HEAD" {
		return
	}

	f, err := os.Open(route.FilePath)
	if err != nil {
		log.Printf("httpfile: opening %s: %v", route.FilePath, err)
		return
	}
	defer f.Close()

	buf := make([]byte, readBufferSize)
	n, err := io.CopyBuffer(conn, f, buf)
	stat.ByteServed.Add(float64(n))
	if err != nil {
		log.Printf("httpfile: streaming %s: %v", route.FilePath, err)
	}
}
