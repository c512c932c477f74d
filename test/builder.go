package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Helper serves a handler on a throwaway server and bundles the usual
// assertion and HTTP client plumbing around it.
type Helper struct {
	Context context.Context
	Server  *httptest.Server
	Http    *RestClient
	Assert  Assertions
	TempDir string
}

func New(handler http.Handler, t *testing.T) *Helper {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Helper{
		Context: context.Background(),
		Server:  server,
		Http:    NewRestClient(t, server.URL),
		Assert:  NewAssertions(t),
		TempDir: t.TempDir(),
	}
}
