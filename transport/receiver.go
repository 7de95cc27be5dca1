package transport

import (
	"net/http"
	"strings"
)

// Receiver handles one request. Implementations populate ctx.Response() and must not write to the
// network themselves: sending is the router's job.
type Receiver interface {
	Receive(ctx *ReceiverContext)
}

// ReceiverFunc adapts a plain function to the Receiver interface.
type ReceiverFunc func(ctx *ReceiverContext)

func (f ReceiverFunc) Receive(ctx *ReceiverContext) {
	f(ctx)
}

// OptionsReceiver answers OPTIONS requests with the methods allowed on the path.
var OptionsReceiver Receiver = ReceiverFunc(func(ctx *ReceiverContext) {
	methods, _ := ctx.AllowedMethods()
	ctx.Response().SetStatus(http.StatusOK)
	ctx.Response().SetHeader("Allow", strings.Join(methods, " "))
})

// StatusReceiver answers every request with an empty body and the given status.
// A 405 also carries the Allow header.
func StatusReceiver(status int) Receiver {
	return ReceiverFunc(func(ctx *ReceiverContext) {
		ctx.Response().SetStatus(status)
		ctx.Response().ResetBody()
		if status == http.StatusMethodNotAllowed {
			if methods, ok := ctx.AllowedMethods(); ok {
				ctx.Response().SetHeader("Allow", strings.Join(methods, " "))
			}
		}
	})
}
