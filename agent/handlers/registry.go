package handlers

import (
	"context"
	"fmt"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/chatcart/chatcart/agent/llm"
	"github.com/chatcart/chatcart/agent/order"
	promptx "github.com/chatcart/chatcart/agent/prompt"
	"github.com/chatcart/chatcart/agent/retrieval"
	einomodel "github.com/cloudwego/eino/components/model"
)

type registryImpl struct {
	classifier contractx.Classifier
	product    contractx.Handler
	checkout   contractx.Handler
}

var _ contractx.Registry = (*registryImpl)(nil)

// NewRegistry compiles the three LLM capabilities, each with its own model
// endpoint resolved from the role overrides, and wires them into the two
// handler adapters.
func NewRegistry(ctx context.Context, cfg llm.Config, resolver *retrieval.Resolver, pipeline *order.Pipeline) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prompts := promptx.LoadPromptSet()

	classifierModel, err := buildChatModel(ctx, cfg, llm.RoleClassifier)
	if err != nil {
		return nil, err
	}
	classifier, err := llm.NewClassifier(ctx, classifierModel, prompts.Classifier)
	if err != nil {
		return nil, err
	}

	extractorModel, err := buildChatModel(ctx, cfg, llm.RoleExtractor)
	if err != nil {
		return nil, err
	}
	extractor, err := llm.NewExtractor(ctx, extractorModel, prompts.Extractor)
	if err != nil {
		return nil, err
	}

	composerModel, err := buildChatModel(ctx, cfg, llm.RoleComposer)
	if err != nil {
		return nil, err
	}
	composer, err := llm.NewComposer(ctx, composerModel, prompts.Composer)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier: classifier,
		product:    NewProductHandler(resolver, composer),
		checkout:   NewCheckoutHandler(extractor, resolver, pipeline),
	}, nil
}

func buildChatModel(ctx context.Context, cfg llm.Config, role llm.Role) (einomodel.BaseChatModel, error) {
	chatCfg := cfg.ChatConfigFor(role)
	m, err := chatCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build %s chat model: %w", role, err)
	}
	return m, nil
}

func (r *registryImpl) Classifier() contractx.Classifier { return r.classifier }
func (r *registryImpl) Product() contractx.Handler       { return r.product }
func (r *registryImpl) Checkout() contractx.Handler      { return r.checkout }
