package nominal

import (
	"github.com/NominalSystems/go-nominal-example/internal/adapters/memsim"
	"github.com/NominalSystems/go-nominal-example/internal/app/scenario"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

// DryRunConnector returns an in-process engine that accepts the reference
// scenario and reports solar panel power from the configured area and
// efficiency. Any non-empty API key is accepted.
func DryRunConnector() Connector {
	return memsim.New(
		memsim.WithDefault(scenario.TagSolarPanel, scenario.ValueLocalUp, domain.Vector(0, 0, 1)),
		memsim.WithProbe(scenario.TagSolarPanel, scenario.OutPowerSource, memsim.SolarPanelPower),
	)
}
