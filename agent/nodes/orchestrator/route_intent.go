package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/chatcart/chatcart/agent/contract"
	statex "github.com/chatcart/chatcart/agent/state"
	"github.com/rs/zerolog/log"
)

// RouteIntent decides which handler owns this turn. A session already in
// checkout skips classification entirely: mid-checkout messages go to the
// checkout handler no matter what they say, so "actually what's my name
// again" cannot derail an in-progress purchase.
func RouteIntent(
	ctx context.Context,
	in *GraphState,
	classifier contractx.Classifier,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Session.State == statex.StateCheckout {
		in.Intent = contractx.IntentPurchase
		return in, nil
	}

	intent, err := classifier.Classify(ctx, in.Text)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", in.Session.ID).
		Str("intent", string(intent)).
		Msg("turn classified")

	in.Intent = intent
	return in, nil
}
