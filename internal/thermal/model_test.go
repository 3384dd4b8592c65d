package thermal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AtSetpointIsIdle(t *testing.T) {
	m := DefaultModel()
	h := m.Hour(18, 120, 350)

	assert.Zero(t, h.HeatingDeficitK)
	assert.Zero(t, h.HeatDemandKW)
	assert.Zero(t, h.HeatInputKW)
	assert.Zero(t, h.HeatCostEUR)
	assert.Zero(t, h.HeatEmissionsG)
	assert.Zero(t, h.CoolDemandKW)
}

func TestModel_FreezingHour(t *testing.T) {
	m := DefaultModel()
	h := m.Hour(0, 50, 400)

	// deficit 18 K → 18 × 6/18 = 6 kW thermal
	assert.InDelta(t, 18.0, h.HeatingDeficitK, 1e-9)
	assert.InDelta(t, 6.0, h.HeatDemandKW, 1e-9)
	// COP 5.5 − 18 × 2.5/18 = 3.0
	assert.InDelta(t, 3.0, h.HeatCOP, 1e-9)
	assert.InDelta(t, 2.0, h.HeatInputKW, 1e-9)
	// 2 kWh × 50 EUR/MWh / 1000
	assert.InDelta(t, 0.1, h.HeatCostEUR, 1e-9)
	assert.InDelta(t, 800.0, h.HeatEmissionsG, 1e-9)
	assert.False(t, h.HeatCOPClamped)
}

func TestModel_DeadbandSuppressesSmallDeficit(t *testing.T) {
	m := DefaultModel()

	for _, temp := range []float64{17.01, 17.5, 17.99, 18, 20, 35} {
		h := m.Hour(temp, 100, 300)
		assert.Zero(t, h.HeatDemandKW, "T=%.2f", temp)
		assert.Zero(t, h.HeatInputKW, "T=%.2f", temp)
	}

	// exactly at the deadband the unit runs
	h := m.Hour(17, 100, 300)
	assert.InDelta(t, 1.0, h.HeatingDeficitK, 1e-9)
	assert.InDelta(t, 1.0/3.0, h.HeatDemandKW, 1e-9)
}

func TestModel_HeatDemandMonotonic(t *testing.T) {
	m := DefaultModel()

	prev := math.Inf(1)
	for temp := -25.0; temp <= 40; temp += 0.1 {
		d := m.Hour(temp, 0, 0).HeatDemandKW
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, prev+1e-12, "T=%.1f", temp)
		prev = d
	}
}

func TestModel_HeatingAndCoolingExclusive(t *testing.T) {
	m := DefaultModel()

	for temp := -25.0; temp <= 40; temp += 0.25 {
		h := m.Hour(temp, 0, 0)
		assert.False(t, h.HeatDemandKW > 0 && h.CoolDemandKW > 0, "T=%.2f", temp)
	}
}

func TestModel_Cooling(t *testing.T) {
	m := DefaultModel()

	h := m.Hour(22.5, 80, 200)
	assert.Zero(t, h.CoolDemandKW)

	h = m.Hour(31, 80, 200)
	// excess 10 K → 4 kW, COP 5.0 − 10 × 2/23
	cop := 5.0 - 10*2.0/23
	assert.InDelta(t, 10.0, h.CoolingExcessK, 1e-9)
	assert.InDelta(t, 4.0, h.CoolDemandKW, 1e-9)
	assert.InDelta(t, cop, h.CoolCOP, 1e-9)
	assert.InDelta(t, 4.0/cop, h.CoolInputKW, 1e-9)
	assert.InDelta(t, 4.0/cop*80/1000, h.CoolCostEUR, 1e-9)
	assert.InDelta(t, 4.0/cop*200, h.CoolEmissionsG, 1e-9)
	assert.Zero(t, h.HeatDemandKW)
}

func TestModel_COPFloor(t *testing.T) {
	m := DefaultModel()

	// deficit 50 K → raw COP 5.5 − 50 × 2.5/18 < 0
	h := m.Hour(-32, 100, 300)
	require.True(t, h.HeatCOPClamped)
	assert.InDelta(t, m.MinCOP, h.HeatCOP, 1e-9)
	assert.InDelta(t, h.HeatDemandKW, h.HeatInputKW, 1e-9)
	assert.False(t, math.IsInf(h.HeatInputKW, 0))
	assert.False(t, math.IsNaN(h.HeatInputKW))

	// exactly where the raw COP would hit zero
	deficit := 5.5 * 18 / 2.5
	h = m.Hour(18-deficit, 100, 300)
	assert.True(t, h.HeatCOPClamped)
	assert.False(t, math.IsInf(h.HeatInputKW, 0))
}

func TestMode_ReferenceDefaultsToSetpoint(t *testing.T) {
	md := Mode{SetpointC: 20, BaseLoadKW: 10, COPIntercept: 4, COPSlope: 2}

	assert.InDelta(t, 5.0, md.Demand(10), 1e-9)
	assert.InDelta(t, 3.0, md.COP(10), 1e-9)
}

func TestModel_Validate(t *testing.T) {
	require.NoError(t, DefaultModel().Validate())

	m := DefaultModel()
	m.MinCOP = 0
	assert.ErrorIs(t, m.Validate(), ErrInvalidMode)

	m = DefaultModel()
	m.Cooling.SetpointC = 15
	m.Cooling.DeadbandK = 1
	assert.ErrorIs(t, m.Validate(), ErrOverlap)

	m = DefaultModel()
	m.Heating.SetpointC = 0
	err := m.Validate()
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Contains(t, err.Error(), "heating")
}
