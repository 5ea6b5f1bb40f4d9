package bench

import (
	"compress/gzip"
	"io"
	"os"
	"testing"
)

const (
	// Upper bounds for the browser client binary
	maxClientSizeGzipped = 4 * 1024 * 1024
	maxClientSizeRaw     = 16 * 1024 * 1024
)

// TestClientBundleSize checks the size of a built browser client. Build it
// with GOOS=js GOARCH=wasm go build -o app/client/client.wasm ./app/client
func TestClientBundleSize(t *testing.T) {
	possiblePaths := []string{
		"../../app/client/client.wasm",
		"../../dist/client.wasm",
	}

	var wasmPath string
	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			wasmPath = path
			break
		}
	}
	if wasmPath == "" {
		t.Skip("No client.wasm found. Build app/client first")
	}

	info, err := os.Stat(wasmPath)
	if err != nil {
		t.Fatalf("Failed to stat WASM file: %v", err)
	}
	rawSize := info.Size()
	t.Logf("Raw WASM size: %.2f KB", float64(rawSize)/1024)
	if rawSize > maxClientSizeRaw {
		t.Errorf("Raw WASM size %d bytes exceeds limit of %d bytes", rawSize, maxClientSizeRaw)
	}

	gzippedSize, err := gzippedSize(wasmPath)
	if err != nil {
		t.Fatalf("Failed to calculate gzipped size: %v", err)
	}
	t.Logf("Gzipped WASM size: %.2f KB", float64(gzippedSize)/1024)
	if gzippedSize > maxClientSizeGzipped {
		t.Errorf("Gzipped WASM size %.2f KB exceeds limit of %.2f KB",
			float64(gzippedSize)/1024, float64(maxClientSizeGzipped)/1024)
	}
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

func gzippedSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var cw countingWriter
	gz := gzip.NewWriter(&cw)
	if _, err := io.Copy(gz, f); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	return cw.n, nil
}
