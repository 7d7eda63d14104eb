package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"velosim/road"
)

// OuterConfig is the file-level wrapper: a kind selector plus the raw
// definition, so the same loader can grow to other document kinds.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// SimConfig encodes a full simulation run outside of code: grid geometry,
// cohort shapes, tick count, and scheduling knobs. The per-cohort blocks hold
// one parameter set stamped across the cohort; heterogeneous populations can
// be assembled in code via road.RoadConfig directly.
type SimConfig struct {
	Road struct {
		Length         int
		MotorLaneWidth int
		BikeLaneWidth  int
	}

	Ticks   int
	Workers int
	Seed    int64

	Bikes BikeCohort
	Cars  CarCohort

	// SimDeadline optionally bounds wall-clock runtime, e.g. {duration: 2m}.
	SimDeadline map[string]string
}

// BikeCohort stamps one bike parameter set across Count bikes, evenly spaced
// along the ring at the rightmost lat.
type BikeCohort struct {
	Count      int
	Width      int
	Length     int
	Speed      int
	SpeedMax   int
	Accel      int
	LateralMax int
	IgnoreProb float64
	DecelProb  float64
	TieBreak   string
}

// CarCohort stamps one car parameter set across Count cars, evenly spaced
// along the ring in the motor lane.
type CarCohort struct {
	Count        int
	Length       int
	BaseWidth    float64
	Alpha        float64
	Beta         float64
	Speed        int
	SpeedMax     int
	SlowAccel    int
	FastAccel    int
	MaxSlowSpeed int
	DecelProb    float64
}

// WithSimDeadline returns a context extended by the configured deadline, if
// one is specified.
func (cfg *SimConfig) WithSimDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.SimDeadline["duration"]; ok && val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml loads a SimConfig from the outer {kind, def} document at path.
// Viper reads the file; the inner definition round-trips through yaml to
// reach the typed config.
func FromYaml(path string) (*SimConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &SimConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	return innerConfig, nil
}

// parseTieBreak maps the config spelling onto the engine enum.
func parseTieBreak(name string) (road.TieBreak, error) {
	switch name {
	case "", "rightmost":
		return road.TieBreakRightmost, nil
	case "uniform":
		return road.TieBreakUniform, nil
	default:
		return 0, fmt.Errorf("unknown tieBreak %q", name)
	}
}
