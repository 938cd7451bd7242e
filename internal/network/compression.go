// File: internal/network/compression.go
package network

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

var (
	gzipReaderPool = sync.Pool{New: func() interface{} { return new(gzip.Reader) }}
	brotliPool     = sync.Pool{New: func() interface{} { return brotli.NewReader(nil) }}
	emptyReader    = strings.NewReader("")
)

// acceptEncoding is what the simulator API is told we can decode.
const acceptEncoding = "br, gzip"

// CompressionMiddleware advertises br and gzip support and transparently
// decodes compressed responses. Screenshot payloads are large base64
// strings and compress well.
type CompressionMiddleware struct {
	Transport http.RoundTripper
}

// NewCompressionMiddleware wraps transport, or http.DefaultTransport when nil.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{Transport: transport}
}

// RoundTrip implements http.RoundTripper.
func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	resp, err := cm.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

type pooledBody struct {
	io.Reader
	original io.ReadCloser
	release  func()
}

func (b *pooledBody) Close() error {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	return b.original.Close()
}

// DecompressResponse replaces resp.Body with a decoding reader when the
// response carries a single br or gzip Content-Encoding. Identity and
// missing encodings pass through untouched.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}
	if len(encodings) > 1 {
		return errors.New("layered content encodings are not supported")
	}

	original := resp.Body
	var body *pooledBody
	switch enc := strings.ToLower(strings.TrimSpace(encodings[0])); enc {
	case "", "identity":
		return nil
	case "br":
		br := brotliPool.Get().(*brotli.Reader)
		if err := br.Reset(original); err != nil {
			brotliPool.Put(br)
			return err
		}
		body = &pooledBody{Reader: br, original: original, release: func() {
			_ = br.Reset(emptyReader)
			brotliPool.Put(br)
		}}
	case "gzip", "x-gzip":
		zr := gzipReaderPool.Get().(*gzip.Reader)
		if err := zr.Reset(original); err != nil {
			gzipReaderPool.Put(zr)
			return err
		}
		body = &pooledBody{Reader: zr, original: original, release: func() {
			_ = zr.Close()
			gzipReaderPool.Put(zr)
		}}
	default:
		return fmt.Errorf("unsupported content encoding %q", enc)
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}
