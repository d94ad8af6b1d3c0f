// Package host defines the boundary to the embedding proxy engine.
//
// The proxy invokes registered actions and filters at fixed points of a
// request's lifecycle. Invocations for one request are serialized by the
// host; invocations for different requests run concurrently on arbitrary
// worker threads. Nothing here performs I/O; implementations adapt the
// host's native transaction object.
package host

// Transaction is one proxied request/response exchange as seen by the host.
//
// Scratch variables are request-scoped key/value storage; they are the only
// state that survives between the disjoint callback invocations belonging to
// the same request.
type Transaction interface {
	// GetVar returns a string scratch variable, false if unset.
	GetVar(name string) (string, bool)
	// GetVarBool returns a boolean scratch variable, false if unset.
	GetVarBool(name string) bool
	SetVar(name, value string)
	SetVarBool(name string, value bool)

	// Fetch evaluates a string sample fetch (method, pathq, src, fe_name,
	// be_name, srv_name, txn_sess_term_state). Returns false if the host
	// cannot produce the value.
	Fetch(name string) (string, bool)
	// FetchInt evaluates an integer sample fetch (txn_status).
	FetchInt(name string) (int64, bool)

	// VisitRequestHeaders calls fn for each request header. Multi-valued
	// headers yield one call per value.
	VisitRequestHeaders(fn func(name, value string))
}

// Message is an HTTP message flowing through a filter, request or response
// side. SetHeader is only meaningful on the request side, before the message
// is forwarded upstream.
type Message interface {
	IsResponse() bool
	SetHeader(name, value string) error
	// StatusLine returns the response status code and reason phrase.
	// Only valid on the response side.
	StatusLine() (code int64, reason string)
}

// ActionScope is a hook point at which an action may run.
type ActionScope int

const (
	ScopeHTTPRequest ActionScope = iota
	ScopeHTTPResponse
	ScopeHTTPAfterResponse
)

// ActionFunc handles one action invocation. args carries the configured
// action arguments, already split by the host.
type ActionFunc func(txn Transaction, args []string) error

// Filter receives header and end-of-analysis events for one request stream.
// The host creates one Filter instance per request via the factory, so
// implementations may keep per-request state in the instance.
type Filter interface {
	// HTTPHeaders fires once when request headers head upstream and once
	// when response headers arrive.
	HTTPHeaders(txn Transaction, msg Message) error
	// EndAnalyze fires at end of analysis for each channel; response
	// reports which side completed.
	EndAnalyze(txn Transaction, response bool) error
}

// FilterFactory builds a Filter for one request. args is the raw argument
// string from the filter declaration (e.g. "start_client_span=false").
type FilterFactory func(args string) (Filter, error)

// Core registers module hooks with the proxy. Registration happens once at
// startup; a registration error prevents the module from activating.
type Core interface {
	RegisterAction(name string, scopes []ActionScope, nargs int, fn ActionFunc) error
	RegisterFilter(name string, factory FilterFactory) error
}
