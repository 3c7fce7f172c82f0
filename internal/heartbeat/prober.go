package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Prober checks that the API answers its hello query.
type Prober interface {
	Probe(ctx context.Context, url string) (bool, error)
}

type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: 30 * time.Second}}
}

type helloEnvelope struct {
	Data struct {
		Hello string `json:"hello"`
	} `json:"data"`
}

// Probe reports true when url returns a non-empty data.hello field. A
// transport failure or a non-2xx status is an error; a well-formed reply
// without a greeting is (false, nil).
func (p *HTTPProber) Probe(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body helloEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return false, fmt.Errorf("decode hello response: %w", err)
	}
	return body.Data.Hello != "", nil
}
