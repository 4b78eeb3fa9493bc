package scenario

import (
	"time"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

// Engine type tags.
const (
	TagUniverse           = "UniverseSystem"
	TagSpacecraft         = "Spacecraft"
	TagReactionWheelArray = "ReactionWheelArray"
	TagReactionWheel      = "ReactionWheel"
	TagNavigator          = "SimpleNavigator"
	TagSolarPanel         = "SolarPanel"
	TagSunSafePointing    = "SunSafePointingSoftware"
	TagMRPFeedback        = "MRPFeedbackSoftware"
	TagMotorTorque        = "ReactionWheelMotorTorqueSoftware"
)

// Message and value names used for wiring.
const (
	OutEclipse          = "Out_EclipseMsg"
	OutNavAtt           = "Out_NavAttMsg"
	OutAttGuid          = "Out_AttGuidMsg"
	OutPowerSource      = "Out_PowerSourceMsg"
	OutRWSpeed          = "Out_RWSpeedMsg"
	OutRWArrayConfig    = "Out_RWArrayConfigMsg"
	OutVehicleConfig    = "Out_VehicleConfigMsg"
	OutCmdTorqueBody    = "Out_CmdTorqueBodyMsg"
	OutArrayMotorTorque = "Out_ArrayMotorTorqueMsg"
	InArrayMotorTorque  = "In_ArrayMotorTorqueMsg"
	ValueLocalUp        = "LocalUp"
)

// DefaultInertiaParam is the name the reference scenario uses for the body
// frame inertia tensor.
const DefaultInertiaParam = "TotalCenterOfMassB_B"

type UniverseParams struct {
	Epoch time.Time
}

func (p UniverseParams) Params() domain.Params {
	return domain.Params{{Name: "Epoch", Value: domain.Epoch(p.Epoch)}}
}

type SpacecraftParams struct {
	TotalMass         float64
	TotalCenterOfMass [3]float64
	Inertia           [3][3]float64
	InertiaParam      string
	Position          [3]float64
	Velocity          [3]float64
	AttitudeRate      [3]float64
}

func (p SpacecraftParams) Params() domain.Params {
	inertiaName := p.InertiaParam
	if inertiaName == "" {
		inertiaName = DefaultInertiaParam
	}
	return domain.Params{
		{Name: "TotalMass", Value: domain.Scalar(p.TotalMass)},
		{Name: "TotalCenterOfMass", Value: domain.Vec(p.TotalCenterOfMass)},
		{Name: inertiaName, Value: domain.Matrix(p.Inertia)},
		{Name: "Position", Value: domain.Vec(p.Position)},
		{Name: "Velocity", Value: domain.Vec(p.Velocity)},
		{Name: "AttitudeRate", Value: domain.Vec(p.AttitudeRate)},
	}
}

type ReactionWheelParams struct {
	SpinAxis [3]float64
}

func (p ReactionWheelParams) Params() domain.Params {
	return domain.Params{{Name: "WheelSpinAxis_B", Value: domain.Vec(p.SpinAxis)}}
}

type SolarPanelParams struct {
	Area       float64
	Efficiency float64
}

func (p SolarPanelParams) Params() domain.Params {
	return domain.Params{
		{Name: "Area", Value: domain.Scalar(p.Area)},
		{Name: "Efficiency", Value: domain.Scalar(p.Efficiency)},
	}
}

// SunSafePointingParams wires the sun pointing guidance block. NavAtt and
// SunDirection both come from the navigator's attitude output in the
// reference scenario.
type SunSafePointingParams struct {
	MinUnitMag      float64
	SmallAngle      float64
	SunBodyVector   domain.Value
	OmegaRN         [3]float64
	SunAxisSpinRate float64
	NavAtt          domain.Handle
	SunDirection    domain.Handle
}

func (p SunSafePointingParams) Params() domain.Params {
	return domain.Params{
		{Name: "MinUnitMag", Value: domain.Scalar(p.MinUnitMag)},
		{Name: "SmallAngle", Value: domain.Scalar(p.SmallAngle)},
		{Name: "SunBodyVector", Value: p.SunBodyVector},
		{Name: "Omega_RN_B", Value: domain.Vec(p.OmegaRN)},
		{Name: "SunAxisSpinRate", Value: domain.Scalar(p.SunAxisSpinRate)},
		{Name: "In_NavAttMsg", Value: domain.Ref(p.NavAtt)},
		{Name: "In_SunDirectionMsg", Value: domain.Ref(p.SunDirection)},
	}
}

type MRPFeedbackParams struct {
	K             float64
	P             float64
	Ki            float64
	IntegralLimit float64
	RWSpeed       domain.Handle
	RWArrayConfig domain.Handle
	AttGuid       domain.Handle
	VehicleConfig domain.Handle
}

func (p MRPFeedbackParams) Params() domain.Params {
	return domain.Params{
		{Name: "K", Value: domain.Scalar(p.K)},
		{Name: "P", Value: domain.Scalar(p.P)},
		{Name: "Ki", Value: domain.Scalar(p.Ki)},
		{Name: "IntegralLimit", Value: domain.Scalar(p.IntegralLimit)},
		{Name: "In_RWSpeedMsg", Value: domain.Ref(p.RWSpeed)},
		{Name: "In_RWArrayConfigMsg", Value: domain.Ref(p.RWArrayConfig)},
		{Name: "In_AttGuidMsg", Value: domain.Ref(p.AttGuid)},
		{Name: "In_VehicleConfigMsg", Value: domain.Ref(p.VehicleConfig)},
	}
}

type MotorTorqueParams struct {
	CmdTorqueBody domain.Handle
	RWArrayConfig domain.Handle
}

func (p MotorTorqueParams) Params() domain.Params {
	return domain.Params{
		{Name: "In_CmdTorqueBodyMsg", Value: domain.Ref(p.CmdTorqueBody)},
		{Name: "In_RWArrayConfigMsg", Value: domain.Ref(p.RWArrayConfig)},
	}
}
