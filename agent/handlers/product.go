package handlers

import (
	"context"
	"fmt"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/chatcart/chatcart/agent/retrieval"
	"github.com/rs/zerolog/log"
)

// ProductHandler answers catalog questions. It resolves the user's message
// against the catalog and lets the composer turn the matches into a reply.
// It never mutates the cart.
type ProductHandler struct {
	resolver *retrieval.Resolver
	composer contractx.Composer
}

func NewProductHandler(resolver *retrieval.Resolver, composer contractx.Composer) *ProductHandler {
	return &ProductHandler{resolver: resolver, composer: composer}
}

var _ contractx.Handler = (*ProductHandler)(nil)

func (h *ProductHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	result, err := h.resolver.Resolve(ctx, req.Message)
	if err != nil {
		if contractx.IsValidation(err) {
			return contractx.HandlerResponse{
				Message: "Could you tell me which product you're interested in?",
				Status:  contractx.StatusAnswered,
			}, nil
		}
		return contractx.HandlerResponse{}, err
	}

	// The composer sees whatever retrieval produced, even nothing:
	// purchase intent must be able to surface on a query with no
	// confident catalog match.
	reply, err := h.composer.Compose(ctx, req.Message, result.Products)
	if err != nil {
		return contractx.HandlerResponse{}, err
	}

	if reply.TransferRequested {
		log.Debug().Str("query", req.Message).Msg("product handler requesting checkout transfer")
		return contractx.HandlerResponse{
			Message: reply.Message,
			Status:  contractx.StatusTransferRequested,
		}, nil
	}

	message := reply.Message
	if message == "" {
		message = "I couldn't find anything matching that in our catalog. Could you describe the product differently, or give me its name or id?"
	}
	return contractx.HandlerResponse{
		Message: message,
		Status:  contractx.StatusAnswered,
	}, nil
}

func clarifyCandidates(products []contractx.ScoredProduct) string {
	names := make([]string, 0, len(products))
	for _, s := range products {
		names = append(names, fmt.Sprintf("%s (%s)", s.Product.Name, s.Product.ID))
	}
	return joinNames(names)
}
