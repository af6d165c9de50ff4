package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/getmockd/soapconnect/pkg/util"
)

// Document sources, as reported to metrics.
const (
	SourceHTTP  = "http"
	SourceFile  = "file"
	SourceCache = "cache"
)

// DocumentCache holds fetched capability documents by location. It is safe
// for concurrent use.
type DocumentCache struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewDocumentCache creates an empty cache.
func NewDocumentCache() *DocumentCache {
	return &DocumentCache{docs: make(map[string][]byte)}
}

var sharedCache = NewDocumentCache()

// SharedCache returns the process-wide document cache.
func SharedCache() *DocumentCache {
	return sharedCache
}

// Get returns the cached document for location.
func (c *DocumentCache) Get(location string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.docs[location]
	return data, ok
}

// Put stores a document.
func (c *DocumentCache) Put(location string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[location] = data
}

// Invalidate removes a document, or every document when location is empty.
func (c *DocumentCache) Invalidate(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if location == "" {
		c.docs = make(map[string][]byte)
		return
	}
	delete(c.docs, location)
}

// FetchDocument loads a capability document from an http(s) URL or a file
// path. When cache is non-nil it is consulted first and filled on success.
func (c *Client) FetchDocument(ctx context.Context, location string, cache *DocumentCache) ([]byte, error) {
	if cache != nil {
		if data, ok := cache.Get(location); ok {
			c.metrics.DocumentFetched(SourceCache, nil)
			c.logger.Debug("capability document served from cache", "location", location)
			return data, nil
		}
	}

	var (
		data   []byte
		source string
		err    error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		source = SourceHTTP
		data, err = c.fetchHTTP(ctx, location)
	} else {
		source = SourceFile
		data, err = readFile(strings.TrimPrefix(location, "file://"))
	}
	c.metrics.DocumentFetched(source, err)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		cache.Put(location, data)
	}
	return data, nil
}

func (c *Client) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	hc := c.httpClient
	c.mu.RUnlock()

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	cleaned, ok := util.SafeFilePathAllowAbsolute(path)
	if !ok {
		return nil, fmt.Errorf("unsafe file path: %s", path)
	}
	data, err := os.ReadFile(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to read capability document: %w", err)
	}
	return data, nil
}
