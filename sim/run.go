package sim

import (
	"context"
	"fmt"

	"velosim/atomic_float"
	"velosim/road"
)

// TickRecord is one emitted simulation step: the tick index plus the road
// snapshot at its end. Tick 0 is the initial configuration.
type TickRecord struct {
	Tick int `json:"tick"`
	road.Snapshot
}

// ProgressFunc is a callback by which the run loop lends per-tick snapshots
// to the shell (stdout encoding, live views). It is synchronous and should
// complete quickly.
type ProgressFunc func(ctx context.Context, rec TickRecord)

// Run advances the road for the given number of ticks, invoking progressFn
// after each one. With checkInvariants set, the at-rest invariants are
// verified at every tick boundary; a violation aborts the run, as does a step
// error or context cancellation.
func Run(
	ctx context.Context,
	r *road.Road,
	ticks int,
	checkInvariants bool,
	progressFn ProgressFunc) error {
	for tick := 1; tick <= ticks; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.Step(); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		if checkInvariants {
			if err := r.CheckConsistency(); err != nil {
				return fmt.Errorf("tick %d: %w", tick, err)
			}
		}
		if progressFn != nil {
			progressFn(ctx, TickRecord{Tick: tick, Snapshot: r.Snapshot()})
		}
	}
	return nil
}

// RollingStats mirrors the latest tick's headline numbers for concurrent
// readers (the status endpoint) while the run loop writes them.
type RollingStats struct {
	tick          *atomic_float.AtomicFloat64
	meanBikeSpeed *atomic_float.AtomicFloat64
	meanCarSpeed  *atomic_float.AtomicFloat64
}

func NewRollingStats() *RollingStats {
	return &RollingStats{
		tick:          atomic_float.NewAtomicFloat64(0),
		meanBikeSpeed: atomic_float.NewAtomicFloat64(0),
		meanCarSpeed:  atomic_float.NewAtomicFloat64(0),
	}
}

// Record publishes one tick's numbers. Absent means are recorded as zero.
func (s *RollingStats) Record(rec TickRecord) {
	s.tick.AtomicSet(float64(rec.Tick))
	if rec.MeanBikeSpeed != nil {
		s.meanBikeSpeed.AtomicSet(*rec.MeanBikeSpeed)
	} else {
		s.meanBikeSpeed.AtomicSet(0)
	}
	if rec.MeanCarSpeed != nil {
		s.meanCarSpeed.AtomicSet(*rec.MeanCarSpeed)
	} else {
		s.meanCarSpeed.AtomicSet(0)
	}
}

// StatsView is a point-in-time copy of the rolling stats.
type StatsView struct {
	Tick          float64 `json:"tick"`
	MeanBikeSpeed float64 `json:"mean_bike_speed"`
	MeanCarSpeed  float64 `json:"mean_car_speed"`
}

func (s *RollingStats) View() StatsView {
	return StatsView{
		Tick:          s.tick.AtomicRead(),
		MeanBikeSpeed: s.meanBikeSpeed.AtomicRead(),
		MeanCarSpeed:  s.meanCarSpeed.AtomicRead(),
	}
}
