package catalog

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/chatcart/chatcart/agent/contract"
	openaisdk "github.com/openai/openai-go"
)

const DefaultEmbeddingModel = string(openaisdk.EmbeddingModelTextEmbedding3Small)

// OpenAIEmbedder computes embeddings through the OpenAI-compatible API.
type OpenAIEmbedder struct {
	client *openaisdk.Client
	model  string
}

func NewOpenAIEmbedder(client *openaisdk.Client, model string) *OpenAIEmbedder {
	if strings.TrimSpace(model) == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{client: client, model: model}
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openaisdk.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings call: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			contractx.ErrSchemaViolation, len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		if int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", contractx.ErrSchemaViolation, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
