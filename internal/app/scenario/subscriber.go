package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// Channel names an output message on a configured component.
type Channel struct {
	Component string `yaml:"component"`
	Message   string `yaml:"message"`
}

func (c Channel) Key() string { return Key(c.Component, c.Message) }

func Key(component, message string) string { return component + "." + message }

// RecordedChannels are the outputs recorded during every run.
var RecordedChannels = []Channel{
	{Component: ComponentSpacecraft, Message: OutEclipse},
	{Component: ComponentNavigator, Message: OutNavAtt},
	{Component: ComponentSunPointing, Message: OutAttGuid},
	{Component: ComponentSolarPanel, Message: OutPowerSource},
	{Component: ComponentReactionWheels, Message: OutRWSpeed},
}

// Subscriptions maps "component.message" to the subscribed message handle.
type Subscriptions map[string]domain.Handle

func (s Subscriptions) Lookup(component, message string) (domain.Handle, bool) {
	h, ok := s[Key(component, message)]
	return h, ok
}

// Clock reports whether simulation time has started advancing.
type Clock interface {
	Started() bool
}

var errAlreadyTicking = errors.New("subscriptions must be registered before the simulation is ticked")

// Subscribe marks every channel for recording at the given sample rate. It
// refuses to run once ticking has begun since the engine would only record a
// partial history.
func Subscribe(ctx context.Context, sim ports.Simulation, g *Graph, channels []Channel, rate float64, clock Clock) (Subscriptions, error) {
	if clock != nil && clock.Started() {
		return nil, fail("subscribe", errAlreadyTicking)
	}
	if rate <= 0 {
		return nil, fail("subscribe", fmt.Errorf("sample rate must be > 0, got %g", rate))
	}

	subs := make(Subscriptions, len(channels))
	for _, ch := range channels {
		owner, ok := g.Component(ch.Component)
		if !ok {
			return nil, fail("subscribe "+ch.Key(), fmt.Errorf("unknown component %q", ch.Component))
		}
		msg, err := sim.GetMessage(ctx, owner, ch.Message)
		if err != nil {
			return nil, fail("message "+ch.Key(), err)
		}
		if err := sim.Subscribe(ctx, msg, rate); err != nil {
			return nil, fail("subscribe "+ch.Key(), err)
		}
		subs[ch.Key()] = msg
	}
	return subs, nil
}
