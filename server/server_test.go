package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/s00inx/httpd/server/engine"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestServer(t testing.TB, files map[string]string, mod func(*Config)) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := DefaultConfig()
	cfg.Root = dir
	cfg.PollInterval = 2 * time.Millisecond
	if mod != nil {
		mod(&cfg)
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

// dial runs a session on one end of a pipe and returns the other
func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	client, srv := net.Pipe()
	go s.ServeConn(srv)
	t.Cleanup(func() { client.Close() })
	client.SetDeadline(time.Now().Add(5 * time.Second))
	return client
}

func send(t *testing.T, c net.Conn, raw string) {
	t.Helper()
	if _, err := c.Write([]byte(raw)); err != nil {
		t.Fatalf("write request: %v", err)
	}
}

// expect reads exactly len(want) bytes and compares
func expect(t *testing.T, c net.Conn, want string) {
	t.Helper()
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatalf("read response: %v (got %q)", err, buf)
	}
	if string(buf) != want {
		t.Fatalf("response = %q, want %q", buf, want)
	}
}

// expectEOF waits for the server to close the connection
func expectEOF(t *testing.T, c net.Conn) {
	t.Helper()
	rest, err := io.ReadAll(c)
	if err != nil {
		t.Fatalf("expected close, got %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected data before close: %q", rest)
	}
}

func okHeader(proto, ctype string, length int, conn string) string {
	h := fmt.Sprintf("%s 200 Document Follows\r\nContent-Type: %s\r\nContent-Length: %d\r\n", proto, ctype, length)
	if conn != "" {
		h += "Connection: " + conn + "\r\n"
	}
	return h + "\r\n"
}

const serverError = "HTTP/1.1 500 Internal Server Error\r\n"

func TestKeepAliveIndex(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"index.html": "hello html"}, nil)
	c := dial(t, s)

	send(t, c, "GET / HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	expect(t, c, "HTTP/1.1 200 Document Follows\r\nContent-Type: text/html\r\nContent-Length: 10\r\nConnection: Keep-alive\r\n\r\nhello html")

	// still open, same answer for the internal prefix
	send(t, c, "GET /inside/page HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	expect(t, c, okHeader("HTTP/1.1", "text/html", 10, "Keep-alive")+"hello html")

	// HEAD gets the same header and nothing else, then Close ends it
	send(t, c, "HEAD / HTTP/1.1\r\nConnection: Close\r\n\r\n")
	expect(t, c, okHeader("HTTP/1.1", "text/html", 10, "Close"))
	expectEOF(t, c)
}

func TestHTTP10NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	c := dial(t, s)

	send(t, c, "GET /missing.txt HTTP/1.0\r\n\r\n")
	expect(t, c, "HTTP/1.0 404 File Not Found\r\nContent-Type: \r\nContent-Length: 0\r\n\r\n")
	expectEOF(t, c)
}

func TestNotFoundKeepsConnection(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"a.txt": "abc"}, nil)
	c := dial(t, s)

	send(t, c, "GET /missing.txt HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	expect(t, c, "HTTP/1.1 404 File Not Found\r\nContent-Type: \r\nContent-Length: 0\r\nConnection: Keep-alive\r\n\r\n")

	send(t, c, "GET /a.txt HTTP/1.1\r\n\r\n")
	expect(t, c, okHeader("HTTP/1.1", "text/plain", 3, "Close")+"abc")
	expectEOF(t, c)
}

func TestHTTP11DefaultsToClose(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"a.css": "body{}"}, nil)
	c := dial(t, s)

	send(t, c, "GET /a.css HTTP/1.1\r\nHost: x\r\n\r\n")
	expect(t, c, okHeader("HTTP/1.1", "text/css", 6, "Close")+"body{}")
	expectEOF(t, c)
}

func TestFatalPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unsupported version", "GET / HTTP/2.0\r\n\r\n"},
		{"unsupported method", "DELETE /index.html HTTP/1.1\r\n\r\n"},
		{"lowercase method", "get /index.html HTTP/1.1\r\n\r\n"},
		{"garbage", "garbage"},
		{"relative target", "GET index.html HTTP/1.1\r\n\r\n"},
		{"post to text", "POST /notes.txt HTTP/1.1\r\nConnection: Keep-alive\r\n\r\nappend me"},
		{"post without extension", "POST /notes HTTP/1.0\r\n\r\nappend me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dir := newTestServer(t, map[string]string{
				"index.html": "hello html",
				"notes.txt":  "original",
			}, nil)
			c := dial(t, s)

			send(t, c, tt.raw)
			expect(t, c, serverError)
			expectEOF(t, c)

			got, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "original" {
				t.Errorf("notes.txt modified: %q", got)
			}
		})
	}
}

func TestRequestFillingBufferIsRejected(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"a.txt": "abc"}, func(cfg *Config) {
		cfg.ReadBufferSize = 64
	})
	c := dial(t, s)

	raw := "GET /a.txt HTTP/1.1\r\nX-Pad: "
	raw += strings.Repeat("p", 64-len(raw))
	send(t, c, raw)
	expect(t, c, serverError)
	expectEOF(t, c)
}

func TestPostThenGet(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{"form.html": "<form></form>"}, nil)
	c := dial(t, s)

	want := "<form></form><h1>POST DATA</h1>\r\n<pre>a=1&b=2</pre>"

	send(t, c, "POST /form.html HTTP/1.1\r\nConnection: Keep-alive\r\n\r\na=1&b=2")
	expect(t, c, okHeader("HTTP/1.1", "text/html", len(want), "Keep-alive")+want)

	send(t, c, "GET /form.html HTTP/1.1\r\nConnection: Close\r\n\r\n")
	expect(t, c, okHeader("HTTP/1.1", "text/html", len(want), "Close")+want)
	expectEOF(t, c)

	got, err := os.ReadFile(filepath.Join(dir, "form.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("file = %q, want one append", got)
	}
}

func TestIdleTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s, _ := newTestServer(t, map[string]string{"a.txt": "abc"}, func(cfg *Config) {
		cfg.Now = clock.Now
	})
	c := dial(t, s)
	resp := okHeader("HTTP/1.1", "text/plain", 3, "Keep-alive") + "abc"

	send(t, c, "GET /a.txt HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	expect(t, c, resp)

	// within the window the next request is served
	clock.Advance(9 * time.Second)
	time.Sleep(20 * time.Millisecond)
	send(t, c, "GET /a.txt HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	expect(t, c, resp)

	// the window restarted with the second request
	clock.Advance(9 * time.Second)
	time.Sleep(20 * time.Millisecond)
	send(t, c, "GET /a.txt HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	expect(t, c, resp)

	clock.Advance(engine.DefaultIdleTimeout + time.Second)
	expectEOF(t, c)
}

func TestLargeFileOverTCP(t *testing.T) {
	content := strings.Repeat("0123456789abcdef", 1<<16) // 1 MiB
	s, _ := newTestServer(t, map[string]string{"big.txt": content}, nil)

	ln, err := engine.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	port := ln.Addr().(*net.TCPAddr).Port
	c, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(10 * time.Second))

	if _, err := c.Write([]byte("GET /big.txt HTTP/1.0\r\n\r\n")); err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(c)
	if err != nil {
		t.Fatal(err)
	}

	header := okHeader("HTTP/1.0", "text/plain", len(content), "")
	if !strings.HasPrefix(string(got), header) {
		t.Fatalf("bad header: %q", got[:min(len(got), 128)])
	}
	if body := string(got[len(header):]); body != content {
		t.Errorf("body is %d bytes, want %d", len(body), len(content))
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("Serve returned %v, want net.ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestIOURingBackend(t *testing.T) {
	content := strings.Repeat("ring", 5000)
	s, _ := newTestServer(t, map[string]string{"r.txt": content}, func(cfg *Config) {
		cfg.UseIOURing = true
	})
	c := dial(t, s)

	// works the same with or without a ring, New falls back on its own
	send(t, c, "GET /r.txt HTTP/1.0\r\n\r\n")
	expect(t, c, okHeader("HTTP/1.0", "text/plain", len(content), "")+content)
	expectEOF(t, c)
}

func TestListenAndServeBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	s, _ := newTestServer(t, nil, func(cfg *Config) {
		cfg.Port = busy.Addr().(*net.TCPAddr).Port
	})

	err = s.ListenAndServe()
	var le *engine.ListenError
	if !errors.As(err, &le) {
		t.Fatalf("expected *engine.ListenError, got %v", err)
	}
	if le.Kind != engine.BindFailed {
		t.Errorf("kind = %s, want %s", le.Kind, engine.BindFailed)
	}
}

func TestNewMissingRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Join(t.TempDir(), "nope")
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for a missing root")
	}
}

func BenchmarkServeIndex(b *testing.B) {
	s, _ := newTestServer(b, map[string]string{"index.html": strings.Repeat("x", 1024)}, nil)

	client, srv := net.Pipe()
	defer client.Close()
	go s.ServeConn(srv)

	req := []byte("GET / HTTP/1.1\r\nConnection: Keep-alive\r\n\r\n")
	resp := make([]byte, len(okHeader("HTTP/1.1", "text/html", 1024, "Keep-alive"))+1024)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := client.Write(req); err != nil {
			b.Fatal(err)
		}
		if _, err := io.ReadFull(client, resp); err != nil {
			b.Fatal(err)
		}
	}
}
