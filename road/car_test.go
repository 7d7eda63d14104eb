package road

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCarConfig() CarConfig {
	return CarConfig{
		Front:        10,
		Length:       2,
		BaseWidth:    2,
		Alpha:        0,
		Beta:         0,
		Speed:        0,
		SpeedMax:     10,
		SlowAccel:    2,
		FastAccel:    3,
		MaxSlowSpeed: 5,
		DecelProb:    0,
	}
}

func TestNewCarValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CarConfig)
	}{
		{"nonpositive length", func(cfg *CarConfig) { cfg.Length = 0 }},
		{"speed over cap", func(cfg *CarConfig) { cfg.Speed = 11 }},
		{"negative speed", func(cfg *CarConfig) { cfg.Speed = -1 }},
		{"negative accel", func(cfg *CarConfig) { cfg.SlowAccel = -1 }},
		{"decel prob over one", func(cfg *CarConfig) { cfg.DecelProb = 1.5 }},
		{"negative alpha", func(cfg *CarConfig) { cfg.Alpha = -0.5 }},
		{"zero width at rest", func(cfg *CarConfig) { cfg.BaseWidth = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultCarConfig()
			tc.mutate(&cfg)
			_, err := NewCar(cfg)
			assert.ErrorIs(t, err, ErrBadVehicle)
		})
	}
}

func TestCarEffectiveWidth(t *testing.T) {
	cfg := defaultCarConfig()
	cfg.BaseWidth = 3
	cfg.Beta = 0.5
	cfg.Alpha = 0.5
	car, err := NewCar(cfg)
	require.NoError(t, err)

	assert.Equal(t, 4, car.effectiveWidth(0))
	assert.Equal(t, 4, car.effectiveWidth(1))
	assert.Equal(t, 5, car.effectiveWidth(2))
	assert.Equal(t, 6, car.effectiveWidth(4))
}

func TestCarPotentialNextSpeed(t *testing.T) {
	cfg := defaultCarConfig()
	cfg.Speed = 5
	cfg.SlowAccel = 2
	cfg.FastAccel = 3
	cfg.MaxSlowSpeed = 5
	car, err := NewCar(cfg)
	require.NoError(t, err)

	// At the slow-speed boundary the slow acceleration still applies.
	assert.Equal(t, 7, car.PotentialNextSpeed())

	car.speed = 6
	assert.Equal(t, 9, car.PotentialNextSpeed())

	car.speed = 9
	assert.Equal(t, 10, car.PotentialNextSpeed())
}

func TestCarDeterministicAdvance(t *testing.T) {
	// A lone car at rest with slow acceleration 2 advances by 2 per tick.
	r, err := New(RoadConfig{
		Length:         20,
		MotorLaneWidth: 3,
		BikeLaneWidth:  3,
		Seed:           1,
		Cars:           []CarConfig{defaultCarConfig()},
	})
	require.NoError(t, err)

	require.NoError(t, r.Step())
	assert.Equal(t, 12, r.cars[0].front)
	assert.Equal(t, 2, r.cars[0].speed)

	require.NoError(t, r.Step())
	assert.Equal(t, 16, r.cars[0].front)
	assert.Equal(t, 4, r.cars[0].speed)
}

func TestCarAlwaysDecelerating(t *testing.T) {
	cfg := defaultCarConfig()
	cfg.DecelProb = 1
	r, err := New(RoadConfig{
		Length:         20,
		MotorLaneWidth: 3,
		BikeLaneWidth:  3,
		Seed:           1,
		Cars:           []CarConfig{cfg},
	})
	require.NoError(t, err)

	// With certain deceleration the car advances by max(a-1, 0).
	require.NoError(t, r.Step())
	assert.Equal(t, 11, r.cars[0].front)
	assert.Equal(t, 1, r.cars[0].speed)
}

func TestCarSafeSpeedStopsBehindObstacle(t *testing.T) {
	// A bike parked in the car's columns four cells ahead (three free cells
	// between) caps the car's safe speed below its potential.
	carCfg := defaultCarConfig()
	carCfg.SlowAccel = 5
	carCfg.SpeedMax = 10
	r, err := New(RoadConfig{
		Length:         40,
		MotorLaneWidth: 3,
		BikeLaneWidth:  3,
		Seed:           1,
		Bikes: []BikeConfig{{
			Front: 14, Right: 1, Width: 2, Length: 1,
			SpeedMax: 0, Accel: 1, IgnoreProb: 1, DecelProb: 1,
		}},
		Cars: []CarConfig{carCfg},
	})
	require.NoError(t, err)

	require.NoError(t, r.Step())
	// Cells 11..13 in the car's columns are free; 14 is occupied.
	assert.Equal(t, 13, r.cars[0].front)
	assert.Equal(t, 3, r.cars[0].speed)
}

func TestCarWideningBlockedByLateralOccupant(t *testing.T) {
	// The safety check at candidate speed k uses the width the car would
	// have at k. A bike sitting two lats right of the car's resting width
	// blocks the acceleration that would splay into it.
	carCfg := defaultCarConfig()
	carCfg.BaseWidth = 2
	carCfg.Alpha = 1 // width(k) = 2 + k
	carCfg.SlowAccel = 2
	carCfg.MaxSlowSpeed = 5
	r, err := New(RoadConfig{
		Length:         40,
		MotorLaneWidth: 4,
		BikeLaneWidth:  2,
		Seed:           1,
		Bikes: []BikeConfig{{
			Front: 12, Right: 3, Width: 1, Length: 1,
			SpeedMax: 0, Accel: 1, IgnoreProb: 1, DecelProb: 1,
		}},
		Cars: []CarConfig{carCfg},
	})
	require.NoError(t, err)

	require.NoError(t, r.Step())
	// k=1 gives width 3 (lats 0-2), clear ahead; k=2 gives width 4 and its
	// lat-3 column hits the bike at long 12.
	assert.Equal(t, 11, r.cars[0].front)
	assert.Equal(t, 1, r.cars[0].speed)
}
