package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

// WebhookClient implements Deliverer and Notifier against an HTTP front-end
// adapter. Every call is a single POST with a bounded timeout; there are no
// retries.
type WebhookClient struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
}

func NewWebhookClient(baseURL, token string, timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		baseURL: baseURL,
		token:   token,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type deliverRequest struct {
	Target    string           `json:"target"`
	Text      string           `json:"text,omitempty"`
	Media     *models.MediaRef `json:"media,omitempty"`
	MediaURL  string           `json:"media_url,omitempty"`
	DeepLink  string           `json:"deep_link,omitempty"`
	ThreadRef string           `json:"thread_ref,omitempty"`
}

type deliverResponse struct {
	Ref string `json:"ref"`
}

func (c *WebhookClient) post(ctx context.Context, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: adapter returned %d", common.ErrDeliveryFailure, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: bad adapter response: %v", common.ErrDeliveryFailure, err)
		}
	}
	return nil
}

func (c *WebhookClient) Deliver(ctx context.Context, targetExternalID string, content Content) (string, error) {
	req := deliverRequest{
		Target:    targetExternalID,
		Text:      content.Text,
		Media:     content.Media,
		MediaURL:  content.MediaURL,
		DeepLink:  content.DeepLink,
		ThreadRef: content.ThreadRef,
	}
	var resp deliverResponse
	if err := c.post(ctx, "/deliveries", req, &resp); err != nil {
		return "", err
	}
	return resp.Ref, nil
}

func (c *WebhookClient) Notify(ctx context.Context, text string) error {
	return c.post(ctx, "/notifications", map[string]string{"text": text}, nil)
}
