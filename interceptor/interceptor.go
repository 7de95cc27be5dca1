package interceptor

import (
	"fmt"
)

// Interceptor is one unit of a phase pipeline. An implementation either short-circuits by returning
// without calling chain.Proceed, or delegates to the rest of the pipeline by calling it exactly once.
// Work done after Proceed returns sees whatever the later interceptors did to the response.
type Interceptor[Req, Resp any] interface {
	Execute(chain *Chain[Req, Resp]) error
}

// Func adapts a plain function to the Interceptor interface.
type Func[Req, Resp any] func(chain *Chain[Req, Resp]) error

func (f Func[Req, Resp]) Execute(chain *Chain[Req, Resp]) error {
	return f(chain)
}

// Named is implemented by interceptors that want a stable name in logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns the interceptor's name, falling back to its type.
func NameOf(i interface{}) string {
	if n, ok := i.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", i)
}

type namedFunc[Req, Resp any] struct {
	name string
	fn   Func[Req, Resp]
}

func (n namedFunc[Req, Resp]) Name() string {
	return n.name
}

func (n namedFunc[Req, Resp]) Execute(chain *Chain[Req, Resp]) error {
	return n.fn(chain)
}

// NewNamed wraps fn with a name.
func NewNamed[Req, Resp any](name string, fn Func[Req, Resp]) Interceptor[Req, Resp] {
	return namedFunc[Req, Resp]{name: name, fn: fn}
}
