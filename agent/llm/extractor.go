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

type extractorImpl struct {
	runner compose.Runnable[map[string]any, extractorLLMOutput]
}

type extractorLLMOutput struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
	ProductRef string `json:"product_reference,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Action     string `json:"action,omitempty"`
}

func NewExtractor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.FieldExtractor, error) {
	runner, err := compileStructuredGraph[extractorLLMOutput](ctx, chatModel, systemPrompt, "llm.extractor_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile extractor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &extractorImpl{runner: runner}, nil
}

func (e *extractorImpl) Extract(ctx context.Context, message string, history []contractx.Turn) (contractx.CheckoutFields, error) {
	payload, err := json.Marshal(map[string]any{
		"user_message": message,
		"history":      summarizeHistory(history),
	})
	if err != nil {
		return contractx.CheckoutFields{}, fmt.Errorf("%w: marshal extractor payload: %v", contractx.ErrValidation, err)
	}

	out, err := e.runner.Invoke(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return contractx.CheckoutFields{}, fmt.Errorf("%w: extractor invoke: %v", contractx.ErrModelInvoke, err)
	}

	action, err := parseAction(out.Action)
	if err != nil {
		return contractx.CheckoutFields{}, err
	}

	return contractx.CheckoutFields{
		Name:       strings.TrimSpace(out.Name),
		Email:      strings.TrimSpace(out.Email),
		Address:    strings.TrimSpace(out.Address),
		ProductRef: strings.TrimSpace(out.ProductRef),
		Quantity:   out.Quantity,
		Action:     action,
	}, nil
}

func parseAction(raw string) (contractx.CheckoutAction, error) {
	switch contractx.CheckoutAction(strings.ToLower(strings.TrimSpace(raw))) {
	case "", contractx.ActionProvideInfo:
		return contractx.ActionProvideInfo, nil
	case contractx.ActionConfirm:
		return contractx.ActionConfirm, nil
	case contractx.ActionCancel:
		return contractx.ActionCancel, nil
	case contractx.ActionRemove:
		return contractx.ActionRemove, nil
	default:
		return "", fmt.Errorf("%w: unknown checkout action %q", contractx.ErrSchemaViolation, raw)
	}
}

func summarizeHistory(history []contractx.Turn) []map[string]string {
	out := make([]map[string]string, 0, len(history))
	for _, t := range history {
		out = append(out, map[string]string{
			"role":    t.Role,
			"content": t.Content,
		})
	}
	return out
}
