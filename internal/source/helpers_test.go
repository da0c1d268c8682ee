package source

import (
	"context"
	"fmt"
	"net/http"
)

// stubFetcher serves canned bodies by URL and records every request.
type stubFetcher struct {
	pages map[string]string
	calls map[string]int
}

func (f *stubFetcher) Get(_ context.Context, url string, _ http.Header) ([]byte, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no response for %s", url)
	}
	return []byte(body), nil
}
