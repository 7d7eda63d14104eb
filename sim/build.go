package sim

import (
	"fmt"

	"velosim/road"
)

// RoadConfig expands the cohort blocks into a full road.RoadConfig: each
// cohort is spread evenly along the ring, bikes seeded at the rightmost lat
// and cars anchored in the motor lane. The road constructor still validates
// the resulting placement.
func (cfg *SimConfig) RoadConfig(workers int) (road.RoadConfig, error) {
	rc := road.RoadConfig{
		Length:         cfg.Road.Length,
		MotorLaneWidth: cfg.Road.MotorLaneWidth,
		BikeLaneWidth:  cfg.Road.BikeLaneWidth,
		Workers:        workers,
		Seed:           cfg.Seed,
	}

	tieBreak, err := parseTieBreak(cfg.Bikes.TieBreak)
	if err != nil {
		return road.RoadConfig{}, err
	}

	totalWidth := cfg.Road.MotorLaneWidth + cfg.Road.BikeLaneWidth
	if cfg.Bikes.Count > 0 {
		spacing := cfg.Road.Length / cfg.Bikes.Count
		if spacing < 1 {
			return road.RoadConfig{}, fmt.Errorf("%d bikes cannot spread over length %d",
				cfg.Bikes.Count, cfg.Road.Length)
		}
		for i := 0; i < cfg.Bikes.Count; i++ {
			rc.Bikes = append(rc.Bikes, road.BikeConfig{
				Front:      spacing * i,
				Right:      totalWidth - 1,
				Width:      cfg.Bikes.Width,
				Length:     cfg.Bikes.Length,
				Speed:      cfg.Bikes.Speed,
				SpeedMax:   cfg.Bikes.SpeedMax,
				Accel:      cfg.Bikes.Accel,
				LateralMax: cfg.Bikes.LateralMax,
				IgnoreProb: cfg.Bikes.IgnoreProb,
				DecelProb:  cfg.Bikes.DecelProb,
				TieBreak:   tieBreak,
			})
		}
	}
	if cfg.Cars.Count > 0 {
		spacing := cfg.Road.Length / cfg.Cars.Count
		if spacing < 1 {
			return road.RoadConfig{}, fmt.Errorf("%d cars cannot spread over length %d",
				cfg.Cars.Count, cfg.Road.Length)
		}
		for i := 0; i < cfg.Cars.Count; i++ {
			rc.Cars = append(rc.Cars, road.CarConfig{
				Front:        spacing * i,
				Length:       cfg.Cars.Length,
				BaseWidth:    cfg.Cars.BaseWidth,
				Alpha:        cfg.Cars.Alpha,
				Beta:         cfg.Cars.Beta,
				Speed:        cfg.Cars.Speed,
				SpeedMax:     cfg.Cars.SpeedMax,
				SlowAccel:    cfg.Cars.SlowAccel,
				FastAccel:    cfg.Cars.FastAccel,
				MaxSlowSpeed: cfg.Cars.MaxSlowSpeed,
				DecelProb:    cfg.Cars.DecelProb,
			})
		}
	}

	return rc, nil
}

// BuildRoad constructs the road for this config.
func (cfg *SimConfig) BuildRoad(workers int) (*road.Road, error) {
	rc, err := cfg.RoadConfig(workers)
	if err != nil {
		return nil, err
	}
	return road.New(rc)
}
