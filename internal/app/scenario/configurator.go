package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NominalSystems/go-nominal-example/internal/astro"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// Component keys used for subscriptions and export channels.
const (
	ComponentSpacecraft     = "spacecraft"
	ComponentReactionWheels = "reaction_wheels"
	ComponentNavigator      = "navigator"
	ComponentSolarPanel     = "solar_panel"
	ComponentSunPointing    = "sun_pointing"
	ComponentFeedback       = "mrp_feedback"
	ComponentMotorTorque    = "motor_torque"
)

// Config describes the spacecraft scenario. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	Epoch       time.Time         `yaml:"epoch"`
	Orbit       astro.Elements    `yaml:"orbit"`
	Spacecraft  SpacecraftConfig  `yaml:"spacecraft"`
	WheelAxes   [][3]float64      `yaml:"wheel_axes"`
	SolarPanel  SolarPanelConfig  `yaml:"solar_panel"`
	SunPointing SunPointingConfig `yaml:"sun_pointing"`
	Feedback    FeedbackConfig    `yaml:"feedback"`
}

type SpacecraftConfig struct {
	TotalMass         float64       `yaml:"total_mass"`
	TotalCenterOfMass [3]float64    `yaml:"center_of_mass"`
	Inertia           [3][3]float64 `yaml:"inertia"`
	InertiaParam      string        `yaml:"inertia_param"`
	AttitudeRate      [3]float64    `yaml:"attitude_rate"`
}

type SolarPanelConfig struct {
	Area       float64 `yaml:"area"`
	Efficiency float64 `yaml:"efficiency"`
}

type SunPointingConfig struct {
	MinUnitMag      float64    `yaml:"min_unit_mag"`
	SmallAngle      float64    `yaml:"small_angle"`
	OmegaRN         [3]float64 `yaml:"omega_rn"`
	SunAxisSpinRate float64    `yaml:"sun_axis_spin_rate"`
}

type FeedbackConfig struct {
	K             float64 `yaml:"k"`
	P             float64 `yaml:"p"`
	Ki            float64 `yaml:"ki"`
	IntegralLimit float64 `yaml:"integral_limit"`
}

// DefaultConfig returns the reference sun-pointing scenario.
func DefaultConfig() Config {
	return Config{
		Epoch: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		Orbit: astro.Elements{SemiMajorAxis: 6671, Inclination: 35, TrueAnomaly: 16},
		Spacecraft: SpacecraftConfig{
			TotalMass:    750,
			Inertia:      [3][3]float64{{900, 0, 0}, {0, 800, 0}, {0, 0, 600}},
			InertiaParam: DefaultInertiaParam,
			AttitudeRate: [3]float64{0.2, 0.1, 0.05},
		},
		WheelAxes:  [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		SolarPanel: SolarPanelConfig{Area: 0.01, Efficiency: 0.23},
		SunPointing: SunPointingConfig{
			MinUnitMag: 0.001,
			SmallAngle: 0.001,
		},
		Feedback: FeedbackConfig{K: 3.5, P: 30, Ki: -1, IntegralLimit: -20},
	}
}

func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Epoch.IsZero() {
		c.Epoch = def.Epoch
	}
	if c.Spacecraft.InertiaParam == "" {
		c.Spacecraft.InertiaParam = def.Spacecraft.InertiaParam
	}
	if len(c.WheelAxes) == 0 {
		c.WheelAxes = def.WheelAxes
	}
}

func (c *Config) Validate() error {
	if c.Orbit.SemiMajorAxis <= 0 {
		return errors.New("orbit.semi_major_axis must be > 0")
	}
	if c.Orbit.Eccentricity < 0 || c.Orbit.Eccentricity >= 1 {
		return errors.New("orbit.eccentricity must be in [0, 1)")
	}
	if len(c.WheelAxes) == 0 {
		return errors.New("at least one reaction wheel axis is required")
	}
	return nil
}

// Graph holds every handle created while configuring the scenario.
type Graph struct {
	Universe       domain.Handle
	Spacecraft     domain.Handle
	ReactionWheels domain.Handle
	Wheels         []domain.Handle
	Navigator      domain.Handle
	SolarPanel     domain.Handle
	SunPointing    domain.Handle
	Feedback       domain.Handle
	MotorTorque    domain.Handle
}

// Component resolves a component key to its handle.
func (g *Graph) Component(key string) (domain.Handle, bool) {
	var h domain.Handle
	switch key {
	case ComponentSpacecraft:
		h = g.Spacecraft
	case ComponentReactionWheels:
		h = g.ReactionWheels
	case ComponentNavigator:
		h = g.Navigator
	case ComponentSolarPanel:
		h = g.SolarPanel
	case ComponentSunPointing:
		h = g.SunPointing
	case ComponentFeedback:
		h = g.Feedback
	case ComponentMotorTorque:
		h = g.MotorTorque
	}
	return h, h != ""
}

// Configure builds the spacecraft graph. Requests are issued strictly in
// dependency order so every reference points at an existing handle.
func Configure(ctx context.Context, sim ports.Simulation, cfg Config, obs ports.Observability) (*Graph, error) {
	g := &Graph{}
	var err error

	g.Universe, err = sim.GetSystem(ctx, TagUniverse, UniverseParams{Epoch: cfg.Epoch}.Params())
	if err != nil {
		return nil, fail("universe", err)
	}

	pos, vel := astro.ClassicalToVector(cfg.Orbit, astro.EarthMu)

	g.Spacecraft, err = sim.AddComponent(ctx, TagSpacecraft, "", SpacecraftParams{
		TotalMass:         cfg.Spacecraft.TotalMass,
		TotalCenterOfMass: cfg.Spacecraft.TotalCenterOfMass,
		Inertia:           cfg.Spacecraft.Inertia,
		InertiaParam:      cfg.Spacecraft.InertiaParam,
		Position:          pos,
		Velocity:          vel,
		AttitudeRate:      cfg.Spacecraft.AttitudeRate,
	}.Params())
	if err != nil {
		return nil, fail("spacecraft", err)
	}

	g.ReactionWheels, err = sim.AddComponent(ctx, TagReactionWheelArray, g.Spacecraft, nil)
	if err != nil {
		return nil, fail("reaction wheel array", err)
	}
	for i, axis := range cfg.WheelAxes {
		wheel, err := sim.AddComponent(ctx, TagReactionWheel, g.ReactionWheels, ReactionWheelParams{SpinAxis: axis}.Params())
		if err != nil {
			return nil, fail(fmt.Sprintf("reaction wheel %d", i+1), err)
		}
		g.Wheels = append(g.Wheels, wheel)
	}

	g.Navigator, err = sim.AddComponent(ctx, TagNavigator, g.Spacecraft, nil)
	if err != nil {
		return nil, fail("navigator", err)
	}

	g.SolarPanel, err = sim.AddComponent(ctx, TagSolarPanel, g.Spacecraft, SolarPanelParams{
		Area:       cfg.SolarPanel.Area,
		Efficiency: cfg.SolarPanel.Efficiency,
	}.Params())
	if err != nil {
		return nil, fail("solar panel", err)
	}

	localUp, err := sim.GetValue(ctx, g.SolarPanel, ValueLocalUp)
	if err != nil {
		return nil, fail("solar panel local up", err)
	}
	navAtt, err := outputRef(ctx, sim, g.Navigator, OutNavAtt)
	if err != nil {
		return nil, fail("navigator attitude", err)
	}
	// The navigator attitude output also feeds the sun direction input; this
	// mirrors the reference scenario and is reported rather than corrected.
	obs.LogWarn("sun_direction_wired_to_nav_attitude",
		ports.Field{Key: "input", Value: "In_SunDirectionMsg"},
		ports.Field{Key: "source", Value: OutNavAtt})

	g.SunPointing, err = sim.AddComponent(ctx, TagSunSafePointing, g.Spacecraft, SunSafePointingParams{
		MinUnitMag:      cfg.SunPointing.MinUnitMag,
		SmallAngle:      cfg.SunPointing.SmallAngle,
		SunBodyVector:   localUp,
		OmegaRN:         cfg.SunPointing.OmegaRN,
		SunAxisSpinRate: cfg.SunPointing.SunAxisSpinRate,
		NavAtt:          navAtt,
		SunDirection:    navAtt,
	}.Params())
	if err != nil {
		return nil, fail("sun safe pointing", err)
	}

	rwSpeed, err := outputRef(ctx, sim, g.ReactionWheels, OutRWSpeed)
	if err != nil {
		return nil, fail("reaction wheel speed", err)
	}
	rwConfig, err := outputRef(ctx, sim, g.ReactionWheels, OutRWArrayConfig)
	if err != nil {
		return nil, fail("reaction wheel config", err)
	}
	attGuid, err := outputRef(ctx, sim, g.SunPointing, OutAttGuid)
	if err != nil {
		return nil, fail("attitude guidance", err)
	}
	vehicleConfig, err := outputRef(ctx, sim, g.Spacecraft, OutVehicleConfig)
	if err != nil {
		return nil, fail("vehicle config", err)
	}

	g.Feedback, err = sim.AddComponent(ctx, TagMRPFeedback, g.Spacecraft, MRPFeedbackParams{
		K:             cfg.Feedback.K,
		P:             cfg.Feedback.P,
		Ki:            cfg.Feedback.Ki,
		IntegralLimit: cfg.Feedback.IntegralLimit,
		RWSpeed:       rwSpeed,
		RWArrayConfig: rwConfig,
		AttGuid:       attGuid,
		VehicleConfig: vehicleConfig,
	}.Params())
	if err != nil {
		return nil, fail("mrp feedback", err)
	}

	cmdTorque, err := outputRef(ctx, sim, g.Feedback, OutCmdTorqueBody)
	if err != nil {
		return nil, fail("commanded torque", err)
	}
	g.MotorTorque, err = sim.AddComponent(ctx, TagMotorTorque, g.Spacecraft, MotorTorqueParams{
		CmdTorqueBody: cmdTorque,
		RWArrayConfig: rwConfig,
	}.Params())
	if err != nil {
		return nil, fail("motor torque", err)
	}

	motorTorque, err := outputRef(ctx, sim, g.MotorTorque, OutArrayMotorTorque)
	if err != nil {
		return nil, fail("array motor torque", err)
	}
	if err := sim.SetValue(ctx, g.ReactionWheels, InArrayMotorTorque, domain.Ref(motorTorque)); err != nil {
		return nil, fail("close torque loop", err)
	}

	obs.LogInfo("scenario_configured",
		ports.Field{Key: "spacecraft", Value: g.Spacecraft},
		ports.Field{Key: "wheels", Value: len(g.Wheels)})
	return g, nil
}

// outputRef reads an output slot and insists it is a message reference.
func outputRef(ctx context.Context, sim ports.Simulation, h domain.Handle, name string) (domain.Handle, error) {
	v, err := sim.GetValue(ctx, h, name)
	if err != nil {
		return "", err
	}
	ref, ok := v.AsRef()
	if !ok {
		return "", fmt.Errorf("%s is a %s, not a message reference", name, v.Kind())
	}
	return ref, nil
}

func fail(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrConfigurationRequestFailed, step, err)
}
