package notify

import (
	"context"
	"errors"
	"fmt"

	"payadmin/internal/types"
)

// Sink delivers a notice through one notification method.
type Sink interface {
	Method() types.NotificationMethod
	Deliver(ctx context.Context, notice Notice) error
}

type Dispatcher struct {
	sinks map[types.NotificationMethod]Sink
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	byMethod := map[types.NotificationMethod]Sink{}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		byMethod[sink.Method()] = sink
	}
	return &Dispatcher{sinks: byMethod}
}

// Dispatch sends the notice through every configured method. It only fails
// when nothing was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, notice Notice, methods []types.NotificationMethod) error {
	var dispatchErr error
	delivered := false
	for _, method := range methods {
		if err := d.dispatchMethod(ctx, method, notice); err != nil {
			dispatchErr = errors.Join(dispatchErr, err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return dispatchErr
}

func (d *Dispatcher) dispatchMethod(ctx context.Context, method types.NotificationMethod, notice Notice) error {
	if method == types.NotificationMethodAuto {
		for _, fallback := range []types.NotificationMethod{types.NotificationMethodNotifySend, types.NotificationMethodBell} {
			sink, ok := d.sinks[fallback]
			if !ok || sink == nil {
				continue
			}
			if err := sink.Deliver(ctx, notice); err == nil {
				return nil
			}
		}
		return errors.New("no notification sink available for auto")
	}
	sink, ok := d.sinks[method]
	if !ok || sink == nil {
		return fmt.Errorf("unknown notification method: %s", method)
	}
	return sink.Deliver(ctx, notice)
}
