package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/legalbot/legalbot/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

// GetPooledClient returns the shared http client used for outbound Google
// API calls, so the embedder and the LLM reuse connections instead of
// re-dialing per request.
func GetPooledClient() *http.Client {
	once.Do(func() {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        config.MaxIdleConns,
				MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
				IdleConnTimeout:     config.IdleConnTimeout,
			},
		}
	})
	return client
}
