package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/foxseedlab/gijiroku/internal/progress"
)

type HTTPSink struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSink(webhookURL string) progress.Sink {
	return &HTTPSink{
		webhookURL: webhookURL,
		client:     &http.Client{},
	}
}

func (s *HTTPSink) Send(ctx context.Context, u progress.Update) error {
	if s.webhookURL == "" {
		return nil
	}

	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("progress webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
