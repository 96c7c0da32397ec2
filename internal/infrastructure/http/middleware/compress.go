package middleware

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// compressionLevel balances ratio against CPU for both encoders. Plan
// payloads are small JSON documents, so higher levels buy nothing.
const compressionLevel = 5

// Compression negotiates brotli or gzip from Accept-Encoding. Brotli is
// registered on top of the stock chi compressor, which only speaks
// gzip and deflate.
func Compression() func(next http.Handler) http.Handler {
	compressor := chimiddleware.NewCompressor(compressionLevel,
		"application/json",
		"text/plain",
	)
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	return compressor.Handler
}
