package messaging

import (
	"context"

	"github.com/glimte/typebus/contracts"
	"github.com/glimte/typebus/interceptors"
)

// ResponderFunc answers a request with a response event
type ResponderFunc[TReq contracts.Message, TResp contracts.Event] func(ctx context.Context, req TReq) (TResp, error)

// ErrorResponderFunc turns a failed request into an error event
type ErrorResponderFunc[TReq contracts.Message, TErr contracts.Event] func(ctx context.Context, req TReq, err error) TErr

// AddResponder registers fn for TReq and publishes whatever it returns. A nil
// response publishes nothing; an error is returned to the sender.
func AddResponder[TReq contracts.Message, TResp contracts.Event](b *Bus, fn ResponderFunc[TReq, TResp]) (Token, error) {
	if fn == nil {
		return Token{}, contracts.ErrNilHandler
	}

	return AddHandlerFunc(b, func(ctx context.Context, req TReq) error {
		resp, err := fn(ctx, req)
		if err != nil {
			return err
		}
		return b.publishResponse(ctx, req, resp)
	})
}

// AddResponderWithError is AddResponder where a failure of fn is published as
// the error event built by onError instead of being returned to the sender.
func AddResponderWithError[TReq contracts.Message, TResp, TErr contracts.Event](b *Bus, fn ResponderFunc[TReq, TResp], onError ErrorResponderFunc[TReq, TErr]) (Token, error) {
	if fn == nil || onError == nil {
		return Token{}, contracts.ErrNilHandler
	}

	return AddHandlerFunc(b, func(ctx context.Context, req TReq) error {
		resp, err := fn(ctx, req)
		if err != nil {
			b.logger.Debug("publishing error response",
				"messageType", TypeOf[TReq]().String(),
				"correlationId", req.GetCorrelationID(),
				"error", err,
			)
			return b.publishResponse(ctx, req, onError(ctx, req, err))
		}
		return b.publishResponse(ctx, req, resp)
	})
}

func (b *Bus) publishResponse(ctx context.Context, req contracts.Message, resp contracts.Event) error {
	if isNil(resp) {
		return nil
	}
	if resp.GetCorrelationID() != req.GetCorrelationID() {
		b.logger.Warn("response correlation id differs from request",
			"messageType", interceptors.MessageType(resp),
			"requestCorrelationId", req.GetCorrelationID(),
			"responseCorrelationId", resp.GetCorrelationID(),
		)
	}
	return b.Publish(ctx, resp)
}
