// Package capture abstracts the camera used for profile snapshots and tier
// verification. A Stream is held only while the capture overlay is open and
// must be closed when it is left.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// Stream is an acquired camera.
type Stream interface {
	// Snapshot grabs the current frame as a data URL.
	Snapshot(ctx context.Context) (string, error)
	Close() error
}

// Device hands out camera streams.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// DataURL embeds data in a data URL. An empty contentType is sniffed.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Unavailable is a Device with no camera attached.
type Unavailable struct{}

// Acquire always fails with domain.ErrDeviceUnavailable.
func (Unavailable) Acquire(context.Context) (Stream, error) {
	return nil, fmt.Errorf("capture: acquire: %w", domain.ErrDeviceUnavailable)
}

// FileDevice serves the still frame an external capture tool keeps writing to
// Path.
type FileDevice struct {
	Path string
}

// Acquire opens a stream if the frame file exists.
func (d FileDevice) Acquire(context.Context) (Stream, error) {
	if _, err := os.Stat(d.Path); err != nil {
		return nil, fmt.Errorf("capture: acquire %s: %w: %v", d.Path, domain.ErrDeviceUnavailable, err)
	}
	return &fileStream{path: d.Path}, nil
}

type fileStream struct {
	mu     sync.Mutex
	path   string
	closed bool
}

func (s *fileStream) Snapshot(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("capture: snapshot on closed stream: %w", domain.ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("capture: read frame: %w", err)
	}
	return DataURL("", data), nil
}

func (s *fileStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
