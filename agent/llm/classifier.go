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

type classifierImpl struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
}

type classifierLLMOutput struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence,omitempty"`
}

func NewClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Classifier, error) {
	runner, err := compileStructuredGraph[classifierLLMOutput](ctx, chatModel, systemPrompt, "llm.classifier_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &classifierImpl{runner: runner}, nil
}

func (c *classifierImpl) Classify(ctx context.Context, message string) (contractx.Intent, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	payload, err := json.Marshal(map[string]any{"user_message": message})
	if err != nil {
		return "", fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return "", fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	// Anything short of a confident purchase label routes to product
	// lookup; the system must never silently assume a purchase.
	if strings.EqualFold(strings.TrimSpace(out.Intent), string(contractx.IntentPurchase)) {
		return contractx.IntentPurchase, nil
	}
	return contractx.IntentProduct, nil
}
