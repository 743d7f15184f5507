package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/rs/zerolog/log"
)

// DispatchHandler invokes the handler selected by routing. History
// visibility differs by handler: checkout sees the full conversation so the
// extractor can merge fields across turns, while product lookup sees none
// and answers each question standalone.
//
// When the product handler reports purchase intent mid-answer, the same
// turn is re-dispatched once to the checkout handler; the hop never chains
// further.
func DispatchHandler(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	resp, err := dispatch(ctx, in, registry)
	if err != nil {
		return nil, err
	}

	in.Message = strings.TrimSpace(resp.Message)
	in.Status = resp.Status
	return in, nil
}

func dispatch(ctx context.Context, in *GraphState, registry contractx.Registry) (contractx.HandlerResponse, error) {
	if in.Intent == contractx.IntentPurchase {
		return registry.Checkout().Handle(ctx, checkoutRequest(in))
	}

	resp, err := registry.Product().Handle(ctx, contractx.HandlerRequest{
		Message: in.Text,
		Cart:    in.Session.Cart,
	})
	if err != nil {
		return contractx.HandlerResponse{}, err
	}
	if resp.Status != contractx.StatusTransferRequested {
		return resp, nil
	}

	log.Debug().Str("session_id", in.Session.ID).Msg("re-dispatching turn to checkout")

	checkoutResp, err := registry.Checkout().Handle(ctx, checkoutRequest(in))
	if err != nil {
		return contractx.HandlerResponse{}, err
	}
	if lead := strings.TrimSpace(resp.Message); lead != "" {
		checkoutResp.Message = lead + "\n\n" + strings.TrimSpace(checkoutResp.Message)
	}
	return checkoutResp, nil
}

func checkoutRequest(in *GraphState) contractx.HandlerRequest {
	return contractx.HandlerRequest{
		Message: in.Text,
		History: in.Session.HistorySnapshot(),
		Cart:    in.Session.Cart,
	}
}
