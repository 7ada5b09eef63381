package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"photo-search/domain"
)

// GatewayConfig points the client at a CLIP model gateway. The gateway speaks
// the OpenAI embeddings protocol for text and a small JSON endpoint for
// images, so both modalities land in the same vector space.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ClipGateway implements domain.EmbeddingClient against the CLIP gateway.
type ClipGateway struct {
	text    *openai.Client
	httpc   *http.Client
	baseURL string
	model   string
}

// NewClipGateway builds the gateway client. Timeout bounds every embedding
// call independently of the caller's context.
func NewClipGateway(cfg GatewayConfig) *ClipGateway {
	conf := openai.DefaultConfig(cfg.APIKey)
	conf.BaseURL = cfg.BaseURL
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClipGateway{
		text:    openai.NewClientWithConfig(conf),
		httpc:   &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// EmbedText encodes a text query into the shared vector space.
func (c *ClipGateway) EmbedText(ctx context.Context, text string) (domain.Embedding, error) {
	resp, err := c.text.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: text embedding request failed: %v", domain.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: gateway returned no embedding data", domain.ErrEmbedding)
	}
	return domain.Embedding(resp.Data[0].Embedding), nil
}

type imageEmbedRequest struct {
	Image string `json:"image"`
	Model string `json:"model,omitempty"`
}

type imageEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedImage encodes raw image bytes into the shared vector space.
func (c *ClipGateway) EmbedImage(ctx context.Context, image []byte) (domain.Embedding, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", domain.ErrEmbedding)
	}

	body, err := json.Marshal(imageEmbedRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", domain.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings/image", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: image embedding request failed: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: gateway returned %d: %s", domain.ErrEmbedding, resp.StatusCode, payload)
	}

	var decoded imageEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrEmbedding, err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("%w: gateway returned an empty embedding", domain.ErrEmbedding)
	}
	return domain.Embedding(decoded.Embedding), nil
}

var _ domain.EmbeddingClient = (*ClipGateway)(nil)
