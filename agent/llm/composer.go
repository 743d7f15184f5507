package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/chatcart/chatcart/agent/contract"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
)

type composerImpl struct {
	runner compose.Runnable[map[string]any, composerLLMOutput]
}

type composerLLMOutput struct {
	Message            string `json:"message"`
	TransferToCheckout bool   `json:"transfer_to_checkout,omitempty"`
}

func NewComposer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Composer, error) {
	runner, err := compileStructuredGraph[composerLLMOutput](ctx, chatModel, systemPrompt, "llm.composer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile composer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &composerImpl{runner: runner}, nil
}

func (c *composerImpl) Compose(ctx context.Context, query string, products []contractx.ScoredProduct) (contractx.ComposerReply, error) {
	payload, err := json.Marshal(map[string]any{
		"user_query": query,
		"products":   summarizeProducts(products),
	})
	if err != nil {
		return contractx.ComposerReply{}, fmt.Errorf("%w: marshal composer payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return contractx.ComposerReply{}, fmt.Errorf("%w: composer invoke: %v", contractx.ErrModelInvoke, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" && !out.TransferToCheckout {
		return contractx.ComposerReply{}, fmt.Errorf("%w: composer message is empty", contractx.ErrSchemaViolation)
	}

	return contractx.ComposerReply{
		Message:           message,
		TransferRequested: out.TransferToCheckout,
	}, nil
}

func summarizeProducts(products []contractx.ScoredProduct) []map[string]any {
	out := make([]map[string]any, 0, len(products))
	for _, s := range products {
		p := s.Product
		out = append(out, map[string]any{
			"product_id":   p.ID,
			"name":         p.Name,
			"description":  p.Description,
			"price":        p.Price,
			"category":     p.Category,
			"stock_status": p.StockStatus,
			"score":        s.Score,
		})
	}
	return out
}
