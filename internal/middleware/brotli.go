package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// brotliMinLength is the smallest body worth compressing; below this the
// encoding overhead beats the savings.
const brotliMinLength = 1024

type brotliResponseWriter struct {
	gin.ResponseWriter
	enc     *brotli.Writer
	pending []byte
	active  bool
}

func (w *brotliResponseWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	if !w.active && len(w.pending) < brotliMinLength {
		return len(p), nil
	}
	if !w.active {
		w.active = true
		w.Header().Set("Content-Encoding", "br")
		w.Header().Del("Content-Length")
	}
	n, err := w.enc.Write(w.pending)
	w.pending = w.pending[:0]
	return n, err
}

func (w *brotliResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush supports streaming responses: anything still buffered goes out
// uncompressed so the client is not left waiting on a partial frame.
func (w *brotliResponseWriter) Flush() {
	w.drain()
	w.ResponseWriter.Flush()
}

// drain writes whatever is buffered through the channel already chosen:
// the encoder once compression started, the raw writer otherwise.
func (w *brotliResponseWriter) drain() {
	if len(w.pending) == 0 {
		return
	}
	if w.active {
		_, _ = w.enc.Write(w.pending)
	} else {
		_, _ = w.ResponseWriter.Write(w.pending)
	}
	w.pending = w.pending[:0]
}

// Brotli compresses response bodies for clients that advertise `br` support.
// Short responses pass through untouched, as do websocket upgrades and
// event streams, which cannot tolerate buffering.
func Brotli() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isStreamingRequest(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &brotliResponseWriter{
			ResponseWriter: c.Writer,
			enc:            brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression),
		}
		c.Writer = w

		defer func() {
			w.drain()
			if w.active {
				_ = w.enc.Close()
			}
		}()

		c.Next()
	}
}

func isStreamingRequest(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
