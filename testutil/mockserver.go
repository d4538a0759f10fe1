package testutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/iksnae/medisnap/internal"
	"github.com/iksnae/medisnap/internal/mockserver"
)

// MockServer is a running mock interpretation service on a loopback port
type MockServer struct {
	URL    string // base API URL, ".../api"
	Server *mockserver.Server
	Store  *mockserver.Store
}

// StartMockServer serves an in-memory mock service until the test ends
func StartMockServer(t *testing.T, opts ...mockserver.Option) *MockServer {
	t.Helper()
	store, err := mockserver.OpenStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open mock store: %v", err)
	}
	srv := mockserver.New(store, opts...)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = store.Close()
		t.Fatalf("Failed to listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("mock server shutdown: %v", err)
		}
		<-done
		_ = store.Close()
	})

	return &MockServer{
		URL:    "http://" + ln.Addr().String() + "/api",
		Server: srv,
		Store:  store,
	}
}

// Seed stores results directly, bypassing the upload route
func (m *MockServer) Seed(t *testing.T, results ...*internal.InterpretationResult) {
	t.Helper()
	for _, res := range results {
		if err := m.Store.SaveResult(context.Background(), res); err != nil {
			t.Fatalf("Failed to seed %s: %v", res.ID, err)
		}
	}
}
