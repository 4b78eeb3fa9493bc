// Package memsim is an in-process stand-in for the simulation engine. It keeps
// the object graph in memory, enforces the engine's wiring rules and records
// subscribed messages while ticking, so workflows can run without network
// access.
package memsim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// Probe produces the data fields of an output message at simulated time t
// from the owning component's current values.
type Probe func(values domain.Params, t float64) map[string]any

// SolarConstant is the solar irradiance at 1 AU in W/m².
const SolarConstant = 1361.0

// SolarPanelPower is a Probe reporting Power = Area × Efficiency × SolarConstant.
func SolarPanelPower(values domain.Params, _ float64) map[string]any {
	area, _ := scalar(values, "Area")
	eff, _ := scalar(values, "Efficiency")
	return map[string]any{"Power": area * eff * SolarConstant}
}

func scalar(p domain.Params, name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	return v.AsScalar()
}

type probeKey struct{ tag, message string }

type settings struct {
	probes     map[probeKey]Probe
	defaults   map[string]domain.Params
	failures   map[string]error
	connectErr error
}

type Option func(*settings)

// WithProbe installs a probe for message on every component of type tag.
func WithProbe(tag, message string, fn Probe) Option {
	return func(s *settings) {
		s.probes[probeKey{tag, message}] = fn
	}
}

// WithDefault gives every new component of type tag an initial value.
func WithDefault(tag, name string, v domain.Value) Option {
	return func(s *settings) {
		s.defaults[tag] = append(s.defaults[tag], domain.Param{Name: name, Value: v})
	}
}

// WithFailure makes every call of op (e.g. "tick", "add_component") fail.
func WithFailure(op string, err error) Option {
	return func(s *settings) {
		s.failures[op] = err
	}
}

// WithConnectError makes Connect fail.
func WithConnectError(err error) Option {
	return func(s *settings) {
		s.connectErr = err
	}
}

// Connector hands out independent in-memory simulations.
type Connector struct {
	cfg      settings
	mu       sync.Mutex
	sessions []*Simulation
}

func New(opts ...Option) *Connector {
	cfg := settings{
		probes:   map[probeKey]Probe{},
		defaults: map[string]domain.Params{},
		failures: map[string]error{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Connector{cfg: cfg}
}

func (c *Connector) Connect(ctx context.Context, creds domain.Credentials) (ports.Simulation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectionFailed, err)
	}
	if c.cfg.connectErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectionFailed, c.cfg.connectErr)
	}
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: empty api key", domain.ErrConnectionFailed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sim := newSimulation(uuid.NewString(), c.cfg)
	c.sessions = append(c.sessions, sim)
	return sim, nil
}

// Sessions returns every simulation created so far.
func (c *Connector) Sessions() []*Simulation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Simulation, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// Request is one call received by a Simulation.
type Request struct {
	Op     string
	Target domain.Handle
	Tag    string
	Name   string
}

type object struct {
	handle   domain.Handle
	tag      string
	parent   domain.Handle
	values   domain.Params
	messages map[string]domain.Handle
}

type message struct {
	handle  domain.Handle
	owner   *object
	name    string
	rate    float64
	next    float64
	samples []domain.Sample
}

// Simulation is a single in-memory session. It is safe for concurrent use,
// although the workflow drives it from one goroutine.
type Simulation struct {
	id  string
	cfg settings

	mu       sync.Mutex
	seq      int
	systems  map[string]domain.Handle
	objects  map[domain.Handle]*object
	messages map[domain.Handle]*message
	order    []domain.Handle
	elapsed  float64
	ticks    int
	requests []Request
}

func newSimulation(id string, cfg settings) *Simulation {
	return &Simulation{
		id:       id,
		cfg:      cfg,
		systems:  map[string]domain.Handle{},
		objects:  map[domain.Handle]*object{},
		messages: map[domain.Handle]*message{},
	}
}

func (s *Simulation) ID() string { return s.id }

// Elapsed reports simulated seconds.
func (s *Simulation) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Requests returns the call log in arrival order.
func (s *Simulation) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Tag reports the type of a created object.
func (s *Simulation) Tag(h domain.Handle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[h]
	if !ok {
		return "", false
	}
	return o.tag, true
}

// Value reads a stored value without logging a request.
func (s *Simulation) Value(h domain.Handle, name string) (domain.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[h]
	if !ok {
		return domain.Value{}, false
	}
	return o.values.Get(name)
}

func (s *Simulation) GetSystem(ctx context.Context, tag string, params domain.Params) (domain.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "get_system", Request{Op: "get_system", Tag: tag}); err != nil {
		return "", err
	}
	if h, ok := s.systems[tag]; ok {
		if err := s.checkRefs(params); err != nil {
			return "", err
		}
		s.objects[h].values = merge(s.objects[h].values, params)
		return h, nil
	}
	o, err := s.create(tag, "", params)
	if err != nil {
		return "", err
	}
	s.systems[tag] = o.handle
	return o.handle, nil
}

func (s *Simulation) AddComponent(ctx context.Context, tag string, parent domain.Handle, params domain.Params) (domain.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "add_component", Request{Op: "add_component", Target: parent, Tag: tag}); err != nil {
		return "", err
	}
	if tag == "" {
		return "", errors.New("component type is required")
	}
	if parent != "" {
		if _, ok := s.objects[parent]; !ok {
			return "", fmt.Errorf("unknown parent %q", parent)
		}
	}
	o, err := s.create(tag, parent, params)
	if err != nil {
		return "", err
	}
	return o.handle, nil
}

func (s *Simulation) GetValue(ctx context.Context, h domain.Handle, name string) (domain.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "get_value", Request{Op: "get_value", Target: h, Name: name}); err != nil {
		return domain.Value{}, err
	}
	o, ok := s.objects[h]
	if !ok {
		return domain.Value{}, fmt.Errorf("unknown object %q", h)
	}
	if isOutput(name) {
		return domain.Ref(s.output(o, name).handle), nil
	}
	v, ok := o.values.Get(name)
	if !ok {
		return domain.Value{}, fmt.Errorf("%s %q has no value %q", o.tag, h, name)
	}
	return v, nil
}

func (s *Simulation) SetValue(ctx context.Context, h domain.Handle, name string, v domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "set_value", Request{Op: "set_value", Target: h, Name: name}); err != nil {
		return err
	}
	o, ok := s.objects[h]
	if !ok {
		return fmt.Errorf("unknown object %q", h)
	}
	if isOutput(name) {
		return fmt.Errorf("%s is an output and cannot be set", name)
	}
	p := domain.Params{{Name: name, Value: v}}
	if err := s.checkRefs(p); err != nil {
		return err
	}
	o.values = merge(o.values, p)
	return nil
}

func (s *Simulation) GetMessage(ctx context.Context, h domain.Handle, name string) (domain.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "get_message", Request{Op: "get_message", Target: h, Name: name}); err != nil {
		return "", err
	}
	o, ok := s.objects[h]
	if !ok {
		return "", fmt.Errorf("unknown object %q", h)
	}
	if !isOutput(name) {
		return "", fmt.Errorf("%s is not an output message", name)
	}
	return s.output(o, name).handle, nil
}

func (s *Simulation) Subscribe(ctx context.Context, msg domain.Handle, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "subscribe", Request{Op: "subscribe", Target: msg}); err != nil {
		return err
	}
	m, ok := s.messages[msg]
	if !ok {
		return fmt.Errorf("unknown message %q", msg)
	}
	if s.ticks > 0 {
		return errors.New("cannot subscribe after the simulation has been ticked")
	}
	if rate <= 0 || math.IsNaN(rate) {
		return fmt.Errorf("sample interval must be > 0, got %g", rate)
	}
	m.rate = rate
	m.next = 0
	return nil
}

func (s *Simulation) Tick(ctx context.Context, step float64, iterations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "tick", Request{Op: "tick"}); err != nil {
		return err
	}
	if step <= 0 || iterations <= 0 {
		return fmt.Errorf("invalid tick: step=%g iterations=%d", step, iterations)
	}
	base := s.elapsed
	for i := 1; i <= iterations; i++ {
		t := base + step*float64(i)
		s.record(t)
	}
	s.elapsed = base + step*float64(iterations)
	s.ticks++
	return nil
}

func (s *Simulation) Fetch(ctx context.Context, msg domain.Handle, field string) ([]domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "fetch", Request{Op: "fetch", Target: msg, Name: field}); err != nil {
		return nil, err
	}
	m, ok := s.messages[msg]
	if !ok {
		return nil, fmt.Errorf("unknown message %q", msg)
	}
	out := make([]domain.Sample, 0, len(m.samples))
	for _, sample := range m.samples {
		t := *sample.Time
		data := map[string]any{}
		if v, ok := sample.Data[field]; ok {
			data[field] = v
		}
		out = append(out, domain.Sample{Time: &t, Data: data})
	}
	return out, nil
}

func (s *Simulation) begin(ctx context.Context, op string, r Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.requests = append(s.requests, r)
	if err := s.cfg.failures[op]; err != nil {
		return err
	}
	return nil
}

func (s *Simulation) create(tag string, parent domain.Handle, params domain.Params) (*object, error) {
	if err := s.checkRefs(params); err != nil {
		return nil, err
	}
	s.seq++
	o := &object{
		handle:   domain.Handle(fmt.Sprintf("%s-%d", strings.ToLower(tag), s.seq)),
		tag:      tag,
		parent:   parent,
		values:   merge(merge(nil, s.cfg.defaults[tag]), params),
		messages: map[string]domain.Handle{},
	}
	s.objects[o.handle] = o
	s.order = append(s.order, o.handle)
	return o, nil
}

// checkRefs rejects references to handles this session never issued.
func (s *Simulation) checkRefs(params domain.Params) error {
	for _, h := range params.References() {
		if _, ok := s.messages[h]; ok {
			continue
		}
		if _, ok := s.objects[h]; ok {
			continue
		}
		return fmt.Errorf("reference to unknown handle %q", h)
	}
	return nil
}

func (s *Simulation) output(o *object, name string) *message {
	if h, ok := o.messages[name]; ok {
		return s.messages[h]
	}
	s.seq++
	m := &message{
		handle: domain.Handle(fmt.Sprintf("%s.%s-%d", o.handle, name, s.seq)),
		owner:  o,
		name:   name,
	}
	o.messages[name] = m.handle
	s.messages[m.handle] = m
	return m
}

const sampleEpsilon = 1e-9

func (s *Simulation) record(t float64) {
	for _, m := range s.messages {
		if m.rate <= 0 {
			continue
		}
		if m.next == 0 {
			m.next = m.rate
		}
		if t+sampleEpsilon < m.next {
			continue
		}
		data := map[string]any{}
		if probe, ok := s.cfg.probes[probeKey{m.owner.tag, m.name}]; ok && probe != nil {
			data = probe(m.owner.values, t)
		}
		tt := t
		m.samples = append(m.samples, domain.Sample{Time: &tt, Data: data})
		for m.next <= t+sampleEpsilon {
			m.next += m.rate
		}
	}
}

func isOutput(name string) bool { return strings.HasPrefix(name, "Out_") }

func merge(dst, src domain.Params) domain.Params {
	for _, p := range src {
		replaced := false
		for i := range dst {
			if dst[i].Name == p.Name {
				dst[i].Value = p.Value
				replaced = true
				break
			}
		}
		if !replaced {
			dst = append(dst, p)
		}
	}
	return dst
}

var (
	_ ports.Connector  = (*Connector)(nil)
	_ ports.Simulation = (*Simulation)(nil)
)
