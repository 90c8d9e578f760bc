package server

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/display"
	"github.com/ayusman/pageturner/internal/geometry"
)

// Preview holds the latest annotated frame as JPEG. It implements
// app.FrameSink and only encodes while someone is watching.
type Preview struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
	viewers atomic.Int32
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{updated: make(chan struct{})}
}

// Publish encodes frame with box drawn on a copy.
func (p *Preview) Publish(frame gocv.Mat, box *geometry.Box) {
	if p.viewers.Load() == 0 || frame.Empty() {
		return
	}

	img := frame.Clone()
	defer img.Close()
	if box != nil {
		display.DrawBox(&img, *box)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.set(data)
}

// set stores data as the latest frame and wakes waiting streams.
func (p *Preview) set(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jpeg = data
	p.seq++
	close(p.updated)
	p.updated = make(chan struct{})
}

// latest returns the current frame, its sequence number, and a channel
// closed on the next update.
func (p *Preview) latest() ([]byte, uint64, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq, p.updated
}

// Viewers returns the number of connected streams.
func (p *Preview) Viewers() int {
	return int(p.viewers.Load())
}

// StreamHandler serves MJPEG frames from a Preview.
type StreamHandler struct {
	preview *Preview
}

// NewStreamHandler creates a new StreamHandler for the given preview.
func NewStreamHandler(preview *Preview) *StreamHandler {
	return &StreamHandler{preview: preview}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.preview.viewers.Add(1)
	defer h.preview.viewers.Add(-1)

	var sent uint64
	for {
		data, seq, updated := h.preview.latest()

		if seq != sent && len(data) > 0 {
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
			if _, err := w.Write(data); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-updated:
		}
	}
}
