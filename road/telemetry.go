package road

import "fmt"

// Snapshot is the read-only per-tick view the surrounding shell serializes.
// Cohort slices are indexed by construction order; mean speeds are absent
// when a cohort is empty.
type Snapshot struct {
	BikeFronts []int `json:"bike_fronts"`
	CarFronts  []int `json:"car_fronts"`

	MeanBikeSpeed *float64 `json:"mean_bike_speed"`
	MeanCarSpeed  *float64 `json:"mean_car_speed"`
}

// Snapshot captures the current vehicle front positions and mean speeds.
func (r *Road) Snapshot() Snapshot {
	snap := Snapshot{
		BikeFronts: make([]int, len(r.bikes)),
		CarFronts:  make([]int, len(r.cars)),
	}
	for i, b := range r.bikes {
		snap.BikeFronts[i] = posMod(b.occ.Front, r.length)
	}
	for i, c := range r.cars {
		snap.CarFronts[i] = posMod(c.front, r.length)
	}
	if mean, ok := r.MeanBikeSpeed(); ok {
		snap.MeanBikeSpeed = &mean
	}
	if mean, ok := r.MeanCarSpeed(); ok {
		snap.MeanCarSpeed = &mean
	}
	return snap
}

// MeanBikeSpeed is the arithmetic mean of bike speeds; ok is false when the
// cohort is empty rather than dividing by zero.
func (r *Road) MeanBikeSpeed() (mean float64, ok bool) {
	if len(r.bikes) == 0 {
		return 0, false
	}
	total := 0
	for _, b := range r.bikes {
		total += b.speed
	}
	return float64(total) / float64(len(r.bikes)), true
}

// MeanCarSpeed is the arithmetic mean of car speeds; ok is false when the
// cohort is empty.
func (r *Road) MeanCarSpeed() (mean float64, ok bool) {
	if len(r.cars) == 0 {
		return 0, false
	}
	total := 0
	for _, c := range r.cars {
		total += c.speed
	}
	return float64(total) / float64(len(r.cars)), true
}

// BikeDensity is the fraction of the full grid covered by bike footprints.
func (r *Road) BikeDensity() float64 {
	cells := 0
	for _, b := range r.bikes {
		cells += b.occ.Width * b.occ.Length
	}
	return float64(cells) / float64(r.length*r.totalWidth)
}

// CarDensity is the fraction of the motor lane covered by car footprints at
// rest, i.e. using each car's zero-speed width.
func (r *Road) CarDensity() float64 {
	if r.motorLaneWidth == 0 {
		return 0
	}
	cells := 0
	for _, c := range r.cars {
		cells += c.effectiveWidth(0) * c.length
	}
	return float64(cells) / float64(r.length*r.motorLaneWidth)
}

// CheckConsistency verifies the at-rest invariants: every agent on the grid
// with positive dimensions and bounded speed, no two agents sharing a cell,
// and the index domain exactly equal to the union of agent cells. Intended
// for tests and debug runs; a healthy engine never fails it.
func (r *Road) CheckConsistency() error {
	expected := make(map[Coord]Vehicle, r.cells.size())

	for id, b := range r.bikes {
		if b.occ.Width <= 0 || b.occ.Length <= 0 {
			return fmt.Errorf("%w: bike %d dims %dx%d", ErrBadVehicle, id, b.occ.Width, b.occ.Length)
		}
		if b.speed < 0 || b.speed > b.speedMax {
			return fmt.Errorf("%w: bike %d speed %d outside [0, %d]", ErrBadVehicle, id, b.speed, b.speedMax)
		}
		if !b.occ.WithinRoad(r.totalWidth) {
			return fmt.Errorf("%w: bike %d at right %d", ErrOffRoad, id, b.occ.Right)
		}
		v := Vehicle{Kind: VehicleBike, ID: id}
		for _, c := range b.occ.Cells(r.length) {
			if prev, taken := expected[c]; taken {
				return &CollisionError{Cell: c, Occupant: prev, Inserted: v}
			}
			expected[c] = v
		}
	}
	for id, car := range r.cars {
		occ := car.Occupation()
		if occ.Width <= 0 || occ.Length <= 0 {
			return fmt.Errorf("%w: car %d dims %dx%d", ErrBadVehicle, id, occ.Width, occ.Length)
		}
		if car.speed < 0 || car.speed > car.speedMax {
			return fmt.Errorf("%w: car %d speed %d outside [0, %d]", ErrBadVehicle, id, car.speed, car.speedMax)
		}
		if !occ.WithinRoad(r.totalWidth) {
			return fmt.Errorf("%w: car %d at right %d", ErrOffRoad, id, occ.Right)
		}
		v := Vehicle{Kind: VehicleCar, ID: id}
		for _, c := range occ.Cells(r.length) {
			if prev, taken := expected[c]; taken {
				return &CollisionError{Cell: c, Occupant: prev, Inserted: v}
			}
			expected[c] = v
		}
	}

	if len(expected) != r.cells.size() {
		return fmt.Errorf("index holds %d cells, agents cover %d", r.cells.size(), len(expected))
	}
	for c, v := range expected {
		found, occupied := r.cells.Get(c)
		if !occupied || found != v {
			return fmt.Errorf("index disagrees with %s at cell (%d,%d)", v, c.Lat, c.Long)
		}
	}
	return nil
}
