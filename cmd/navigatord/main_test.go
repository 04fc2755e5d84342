package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"
)

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dataDir := t.TempDir()

	// Set test port to avoid conflicts, and point everything at a scratch
	// data directory so the test never touches a real ~/.config/navigator.
	os.Setenv("SERVER_HTTP_PORT", "8084")
	os.Setenv("NAVIGATOR_DATA_DIR", dataDir)
	os.Setenv("STORE_CHROMEM_PATH", dataDir+"/vectorstore")
	os.Setenv("EMBEDDINGS_CACHE_DIR", dataDir+"/embeddings-cache")
	defer os.Unsetenv("SERVER_HTTP_PORT")
	defer os.Unsetenv("NAVIGATOR_DATA_DIR")
	defer os.Unsetenv("STORE_CHROMEM_PATH")
	defer os.Unsetenv("EMBEDDINGS_CACHE_DIR")

	// Create context with timeout for the test
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, false)
	}()

	// Wait for server to start
	time.Sleep(200 * time.Millisecond)

	// Test health check endpoint
	resp, err := http.Get("http://localhost:8084/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Cancel context to shutdown server
	cancel()

	// Wait for server to stop
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}
