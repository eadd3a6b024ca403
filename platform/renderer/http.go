package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Render options mirroring what the screenshot service understands.
const (
	defaultQuality  = 78
	defaultSelector = "#invite-frame"
	defaultWaitMS   = 300

	maxAttempts     = 2
	retryBackoff    = 800 * time.Millisecond
	maxResponseSize = 8 << 20
)

type renderRequest struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	Selector string `json:"selector"`
	URL      string `json:"url"`
	WaitMS   int    `json:"wait_ms"`
}

type httpService struct {
	client   *http.Client
	endpoint string
}

// HTTPService returns a Service implementation talking to a screenshot
// service over HTTP.
func HTTPService(endpoint string, client *http.Client) Service {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &httpService{
		client:   client,
		endpoint: endpoint,
	}
}

func (s *httpService) Render(url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		img, err := s.render(url, attempt)
		if err == nil {
			return img, nil
		}

		lastErr = err

		if attempt < maxAttempts {
			time.Sleep(retryBackoff)
		}
	}

	return nil, lastErr
}

func (s *httpService) render(url string, attempt int) ([]byte, error) {
	body, err := json.Marshal(renderRequest{
		Format:   "jpeg",
		Quality:  defaultQuality,
		Selector: defaultSelector,
		URL:      cacheBust(url, attempt),
		WaitMS:   defaultWaitMS,
	})
	if err != nil {
		return nil, err
	}

	res, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render status %d", res.StatusCode)
	}

	img, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	if len(img) == 0 {
		return nil, fmt.Errorf("render returned empty image")
	}

	return img, nil
}

func cacheBust(url string, attempt int) string {
	sep := "?"

	for _, r := range url {
		if r == '?' {
			sep = "&"
			break
		}
	}

	return fmt.Sprintf("%s%scb=%d-%d", url, sep, time.Now().UnixNano(), attempt)
}
