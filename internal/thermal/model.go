package thermal

import (
	"errors"
	"fmt"
)

// Mode parameterises one side of the heat pump (heating or cooling).
//
// The driving temperature difference is the heating deficit
// (setpoint − ambient) or the cooling excess (ambient − setpoint). It counts
// only once it reaches the deadband; below that it is zero.
type Mode struct {
	SetpointC       float64 `yaml:"setpoint_c"`        // building setpoint
	DeadbandK       float64 `yaml:"deadband_k"`        // minimum difference before the unit runs
	BaseLoadKW      float64 `yaml:"base_load_kw"`      // thermal load at ReferenceDeltaK
	ReferenceDeltaK float64 `yaml:"reference_delta_k"` // 0 means SetpointC
	COPIntercept    float64 `yaml:"cop_intercept"`     // COP at zero difference
	COPSlope        float64 `yaml:"cop_slope"`         // COP drop across COPSpanK
	COPSpanK        float64 `yaml:"cop_span_k"`        // 0 means SetpointC
}

// Model converts ambient temperature into heat-pump demand, input, cost and
// emissions for one hour. It holds no state between hours.
type Model struct {
	Heating Mode    `yaml:"heating"`
	Cooling Mode    `yaml:"cooling"`
	MinCOP  float64 `yaml:"min_cop"` // COP floor applied to both modes
}

// DefaultModel returns the reference building: 6 kW heat load at 0°C with
// an 18°C setpoint, cooling above 23°C.
func DefaultModel() Model {
	return Model{
		Heating: Mode{
			SetpointC:    18,
			DeadbandK:    1,
			BaseLoadKW:   6.0,
			COPIntercept: 5.5,
			COPSlope:     2.5,
		},
		Cooling: Mode{
			SetpointC:       21,
			DeadbandK:       2,
			BaseLoadKW:      4.0,
			ReferenceDeltaK: 10,
			COPIntercept:    5.0,
			COPSlope:        2.0,
			COPSpanK:        23,
		},
		MinCOP: 1.0,
	}
}

var (
	ErrInvalidMode = errors.New("invalid mode parameters")
	ErrOverlap     = errors.New("heating and cooling activation ranges overlap")
)

// Validate checks the model is physically usable.
func (m Model) Validate() error {
	var errs []error
	if m.MinCOP <= 0 {
		errs = append(errs, fmt.Errorf("min_cop must be > 0, got %g: %w", m.MinCOP, ErrInvalidMode))
	}
	if err := m.Heating.validate("heating"); err != nil {
		errs = append(errs, err)
	}
	if err := m.Cooling.validate("cooling"); err != nil {
		errs = append(errs, err)
	}
	// Heating runs at T <= setpoint_h - deadband_h, cooling at
	// T >= setpoint_c + deadband_c; the two must never both hold.
	heatOn := m.Heating.SetpointC - m.Heating.DeadbandK
	coolOn := m.Cooling.SetpointC + m.Cooling.DeadbandK
	if heatOn >= coolOn {
		errs = append(errs, fmt.Errorf("heating below %.1f°C, cooling above %.1f°C: %w", heatOn, coolOn, ErrOverlap))
	}
	return errors.Join(errs...)
}

func (md Mode) validate(name string) error {
	switch {
	case md.DeadbandK < 0:
		return fmt.Errorf("%s: deadband_k must be >= 0: %w", name, ErrInvalidMode)
	case md.BaseLoadKW < 0:
		return fmt.Errorf("%s: base_load_kw must be >= 0: %w", name, ErrInvalidMode)
	case md.referenceDelta() <= 0:
		return fmt.Errorf("%s: reference_delta_k (or setpoint_c) must be > 0: %w", name, ErrInvalidMode)
	case md.copSpan() <= 0:
		return fmt.Errorf("%s: cop_span_k (or setpoint_c) must be > 0: %w", name, ErrInvalidMode)
	case md.COPIntercept <= 0:
		return fmt.Errorf("%s: cop_intercept must be > 0: %w", name, ErrInvalidMode)
	}
	return nil
}

func (md Mode) referenceDelta() float64 {
	if md.ReferenceDeltaK == 0 {
		return md.SetpointC
	}
	return md.ReferenceDeltaK
}

func (md Mode) copSpan() float64 {
	if md.COPSpanK == 0 {
		return md.SetpointC
	}
	return md.COPSpanK
}

// active returns delta when it reaches the deadband, else 0.
func (md Mode) active(delta float64) float64 {
	if delta <= 0 || delta < md.DeadbandK {
		return 0
	}
	return delta
}

// Demand returns thermal demand in kW for a driving difference.
func (md Mode) Demand(delta float64) float64 {
	return delta * (md.BaseLoadKW / md.referenceDelta())
}

// COP returns the unclamped coefficient of performance for a driving
// difference. It falls linearly and can reach zero or below at extreme
// differences.
func (md Mode) COP(delta float64) float64 {
	return md.COPIntercept - delta*(md.COPSlope/md.copSpan())
}

// Hour holds every derived value for one hour.
type Hour struct {
	HeatingDeficitK float64
	CoolingExcessK  float64

	HeatDemandKW float64
	CoolDemandKW float64

	HeatCOP        float64
	CoolCOP        float64
	HeatCOPClamped bool
	CoolCOPClamped bool

	// kW averaged over one hour, so numerically kWh.
	HeatInputKW float64
	CoolInputKW float64

	HeatCostEUR float64
	CoolCostEUR float64

	HeatEmissionsG float64
	CoolEmissionsG float64
}

// HeatingDeficit returns setpoint − T when it reaches the deadband, else 0.
func (m Model) HeatingDeficit(tempC float64) float64 {
	return m.Heating.active(m.Heating.SetpointC - tempC)
}

// CoolingExcess returns T − setpoint when it reaches the deadband, else 0.
func (m Model) CoolingExcess(tempC float64) float64 {
	return m.Cooling.active(tempC - m.Cooling.SetpointC)
}

// Hour evaluates the model for ambient temperature tempC, day-ahead price
// in EUR/MWh and grid carbon intensity in gCO2/kWh.
func (m Model) Hour(tempC, priceEURPerMWh, carbonGPerKWh float64) Hour {
	var h Hour

	h.HeatingDeficitK = m.HeatingDeficit(tempC)
	h.HeatDemandKW = m.Heating.Demand(h.HeatingDeficitK)
	h.HeatCOP, h.HeatCOPClamped = m.clamp(m.Heating.COP(h.HeatingDeficitK))
	h.HeatInputKW = h.HeatDemandKW / h.HeatCOP

	h.CoolingExcessK = m.CoolingExcess(tempC)
	h.CoolDemandKW = m.Cooling.Demand(h.CoolingExcessK)
	h.CoolCOP, h.CoolCOPClamped = m.clamp(m.Cooling.COP(h.CoolingExcessK))
	h.CoolInputKW = h.CoolDemandKW / h.CoolCOP

	// 1 MWh = 1000 kWh
	h.HeatCostEUR = h.HeatInputKW * priceEURPerMWh / 1000
	h.CoolCostEUR = h.CoolInputKW * priceEURPerMWh / 1000

	h.HeatEmissionsG = h.HeatInputKW * carbonGPerKWh
	h.CoolEmissionsG = h.CoolInputKW * carbonGPerKWh

	return h
}

func (m Model) clamp(cop float64) (float64, bool) {
	if cop < m.MinCOP {
		return m.MinCOP, true
	}
	return cop, false
}
