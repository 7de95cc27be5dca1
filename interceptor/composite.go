package interceptor

// Composite groups interceptors so they can be configured as one. Its components run as a nested chain;
// the outer chain proceeds once they are done, even if a component short-circuited the group.
type Composite[Req, Resp any] struct {
	name       string
	controller *Controller[Req, Resp]
}

func NewComposite[Req, Resp any](name string, components ...Interceptor[Req, Resp]) *Composite[Req, Resp] {
	return &Composite[Req, Resp]{
		name:       name,
		controller: NewController(name, components),
	}
}

func (c *Composite[Req, Resp]) Name() string {
	return c.name
}

func (c *Composite[Req, Resp]) Execute(chain *Chain[Req, Resp]) error {
	if err := c.controller.run(chain.Context(), chain.Request(), chain.Response(), chain.exec.timer); err != nil {
		return err
	}
	return chain.Proceed()
}
