// Package messaging provides the in-process typed message bus.
//
// Handlers are registered per type key, the reflect.Type of a message. A
// message is offered to its exact type first, then to each base type (the
// first exported embedded message struct, level by level), then to every
// registered interface it implements, in the order those interfaces were
// first registered.
//
//   - Commands (messages that are not contracts.Event) stop at the first key
//     that has handlers.
//   - Events continue through every matching key.
//
// A handler error aborts the rest of the dispatch and is returned unchanged.
// Panics are not recovered.
//
// Example usage:
//
//	bus := messaging.New(messaging.WithLogger(logger))
//
//	tok, err := messaging.AddHandlerFunc(bus, func(ctx context.Context, cmd *PlaceOrder) error {
//		return bus.Publish(ctx, &OrderPlaced{BaseEvent: contracts.NewBaseEvent(cmd.CorrelationID)})
//	})
//
//	future, err := messaging.Request[*OrderPlaced](ctx, bus, &PlaceOrder{BaseMessage: contracts.NewBaseMessage()})
//	<-future.Done()
//	placed, err := future.Result()
//
//	_ = bus.RemoveHandler(tok)
//
// Pipes translate one message type into another and feed the result back
// into the bus:
//
//	_, err = messaging.AddTranslator(bus, func(ctx context.Context, in *LegacyOrder) (*PlaceOrder, error) {
//		return &PlaceOrder{BaseMessage: contracts.NewBaseMessageWithCorrelation(in.Ref)}, nil
//	})
package messaging
