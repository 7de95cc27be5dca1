package api

// Exchange identifies the ad exchange a server instance is deployed for. Exactly one exchange is active
// per process; it is chosen from configuration at startup and passed explicitly to every component.
type Exchange struct {
	name string
}

// NoExchange is the identity used by exchange-independent tests and harnesses.
var NoExchange = Exchange{name: "none"}

// DoubleClick is the identity of the DoubleClick-style adapter.
var DoubleClick = Exchange{name: "doubleclick"}

// Exchanges returns the identities of every built-in adapter.
func Exchanges() []Exchange {
	return []Exchange{NoExchange, DoubleClick}
}

func NewExchange(name string) Exchange {
	return Exchange{name: name}
}

func (e Exchange) Name() string {
	return e.name
}

func (e Exchange) String() string {
	return e.name
}

func (e Exchange) IsNoExchange() bool {
	return e == NoExchange
}

// Phase is one of the request kinds an exchange sends to a bidder.
type Phase string

const (
	PhaseBid        Phase = "bid"
	PhaseImpression Phase = "impression"
	PhaseClick      Phase = "click"
	PhaseMatch      Phase = "match"
)

// Phases returns all phases, in the order they occur for one ad.
func Phases() []Phase {
	return []Phase{PhaseBid, PhaseImpression, PhaseClick, PhaseMatch}
}

func (p Phase) String() string {
	return string(p)
}

// Metadata carries data between interceptors of the same request.
type Metadata map[string]interface{}

func (m Metadata) GetString(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
