package test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Reply is one scripted response. Hangup closes the connection without
// answering, which the client sees as a transport failure.
type Reply struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
	Hangup  bool
}

func JSON(status int, body string) Reply {
	return Reply{Status: status, Body: body, Headers: map[string]string{"Content-Type": "application/json"}}
}

func Status(status int) Reply {
	return Reply{Status: status}
}

// Recorded is a request as the fake server received it.
type Recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

// FakeServer plays scripted replies per "METHOD /path". Replies are consumed
// in order and the last one repeats once the script runs out.
type FakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	routes   map[string][]Reply
	requests []Recorded
}

func NewFakeServer(t *testing.T) *FakeServer {
	s := &FakeServer{routes: map[string][]Reply{}}
	s.Server = httptest.NewUnstartedServer(http.HandlerFunc(s.serve))
	// every request gets a fresh connection, so a hangup always reaches the client
	s.Server.Config.SetKeepAlivesEnabled(false)
	s.Server.Start()
	t.Cleanup(s.Close)
	return s
}

func (s *FakeServer) On(method string, path string, replies ...Reply) *FakeServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.routes[key] = append(s.routes[key], replies...)
	return s
}

func (s *FakeServer) Requests(method string, path string) []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Recorded
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *FakeServer) Count(method string, path string) int {
	return len(s.Requests(method, path))
}

func (s *FakeServer) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *FakeServer) next(key string) (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.routes[key]
	if len(queue) == 0 {
		return Reply{}, false
	}
	reply := queue[0]
	if len(queue) > 1 {
		s.routes[key] = queue[1:]
	}
	return reply, true
}

func (s *FakeServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()

	reply, ok := s.next(r.Method + " " + r.URL.Path)
	if !ok {
		reply = JSON(http.StatusNotFound, `{"ok":false,"code":"NOT_FOUND","msg":"no scripted reply"}`)
	}
	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			// the client gave up
			timer.Stop()
			return
		}
	}
	if reply.Hangup {
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
				return
			}
		}
		panic(http.ErrAbortHandler)
	}
	for key, value := range reply.Headers {
		w.Header().Set(key, value)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if reply.Body != "" {
		_, _ = io.WriteString(w, reply.Body)
	}
}
