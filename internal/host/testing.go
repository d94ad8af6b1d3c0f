package host

import (
	"fmt"
	"sync"
)

// FakeTransaction is an in-memory Transaction for tests and the smoke CLI.
type FakeTransaction struct {
	mu       sync.Mutex
	strVars  map[string]string
	boolVars map[string]bool

	// Samples maps sample-fetch names to values (method, pathq, src, ...).
	Samples map[string]string
	// IntSamples maps integer sample-fetch names to values (txn_status).
	IntSamples map[string]int64
	// ReqHeaders holds request headers in arrival order.
	ReqHeaders [][2]string
}

func NewFakeTransaction() *FakeTransaction {
	return &FakeTransaction{
		strVars:    make(map[string]string),
		boolVars:   make(map[string]bool),
		Samples:    make(map[string]string),
		IntSamples: make(map[string]int64),
	}
}

func (t *FakeTransaction) GetVar(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.strVars[name]
	return v, ok
}

func (t *FakeTransaction) GetVarBool(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.boolVars[name]
}

func (t *FakeTransaction) SetVar(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strVars[name] = value
}

func (t *FakeTransaction) SetVarBool(name string, value bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.boolVars[name] = value
}

func (t *FakeTransaction) Fetch(name string) (string, bool) {
	v, ok := t.Samples[name]
	return v, ok
}

func (t *FakeTransaction) FetchInt(name string) (int64, bool) {
	v, ok := t.IntSamples[name]
	return v, ok
}

func (t *FakeTransaction) VisitRequestHeaders(fn func(name, value string)) {
	for _, h := range t.ReqHeaders {
		fn(h[0], h[1])
	}
}

// FakeMessage is an in-memory Message recording injected headers.
type FakeMessage struct {
	Response bool
	Code     int64
	Reason   string

	// SetHeaders records SetHeader calls, last write wins per name.
	SetHeaders map[string]string
}

func NewFakeMessage(response bool) *FakeMessage {
	return &FakeMessage{Response: response, SetHeaders: make(map[string]string)}
}

func (m *FakeMessage) IsResponse() bool { return m.Response }

func (m *FakeMessage) SetHeader(name, value string) error {
	m.SetHeaders[name] = value
	return nil
}

func (m *FakeMessage) StatusLine() (int64, string) { return m.Code, m.Reason }

// FakeCore records registrations so tests can drive hooks directly.
type FakeCore struct {
	Actions map[string]ActionFunc
	Scopes  map[string][]ActionScope
	Filters map[string]FilterFactory
}

func NewFakeCore() *FakeCore {
	return &FakeCore{
		Actions: make(map[string]ActionFunc),
		Scopes:  make(map[string][]ActionScope),
		Filters: make(map[string]FilterFactory),
	}
}

func (c *FakeCore) RegisterAction(name string, scopes []ActionScope, nargs int, fn ActionFunc) error {
	if _, dup := c.Actions[name]; dup {
		return fmt.Errorf("action %q already registered", name)
	}
	c.Actions[name] = fn
	c.Scopes[name] = scopes
	return nil
}

func (c *FakeCore) RegisterFilter(name string, factory FilterFactory) error {
	if _, dup := c.Filters[name]; dup {
		return fmt.Errorf("filter %q already registered", name)
	}
	c.Filters[name] = factory
	return nil
}
