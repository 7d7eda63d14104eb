/*
Package road implements a discrete, stochastic cellular-automaton model of
mixed bicycle/motor-vehicle traffic on a one-directional ring road. The grid
is laterally bounded and longitudinally toroidal; bikes are rigid rectangles
free to roam the full width, cars are rectangles anchored at lat 0 whose width
grows with speed.

Each tick runs three phases in fixed order: bike lateral, bike forward, car.
Every phase computes agent proposals in parallel against a frozen index and
then applies them serially, so no worker ever writes shared state. The only
nondeterminism is the per-tick shuffled acceptance order, the Bernoulli
draws each agent makes, and the uniform tie-break's random pick.
*/
package road

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// RoadConfig assembles a road: the grid dimensions, the worker pool size, the
// RNG seed, and the two cohorts in construction order. Cohort order is
// stable: telemetry indices refer back to these slices.
type RoadConfig struct {
	Length         int `json:"length"`
	MotorLaneWidth int `json:"ml_width"`
	BikeLaneWidth  int `json:"bl_width"`

	// Workers sizes the proposal pool; zero or negative means NumCPU.
	Workers int `json:"-"`
	// Seed fixes the road RNG; zero seeds from the wall clock.
	Seed int64 `json:"-"`

	Bikes []BikeConfig `json:"bikes"`
	Cars  []CarConfig  `json:"cars"`
}

// Road owns the agent arrays and the occupancy index and orchestrates the
// per-tick phase ordering. All mutation happens on the caller's goroutine;
// proposal workers only ever read.
type Road struct {
	length         int
	motorLaneWidth int
	bikeLaneWidth  int
	totalWidth     int

	bikes []*Bike
	cars  []*Car
	cells *RoadCells

	rng     *rand.Rand
	workers int
}

// New validates the config and every agent, builds the occupancy index, and
// rejects initial placements that collide or fall off the grid.
func New(cfg RoadConfig) (*Road, error) {
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: length %d must be positive", ErrBadGeometry, cfg.Length)
	}
	if cfg.MotorLaneWidth < 0 || cfg.BikeLaneWidth < 0 {
		return nil, fmt.Errorf("%w: lane widths %d/%d must be nonnegative",
			ErrBadGeometry, cfg.MotorLaneWidth, cfg.BikeLaneWidth)
	}
	totalWidth := cfg.MotorLaneWidth + cfg.BikeLaneWidth
	if totalWidth <= 0 {
		return nil, fmt.Errorf("%w: total width must be positive", ErrBadGeometry)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Road{
		length:         cfg.Length,
		motorLaneWidth: cfg.MotorLaneWidth,
		bikeLaneWidth:  cfg.BikeLaneWidth,
		totalWidth:     totalWidth,
		cells: newRoadCells(
			cfg.Length,
			totalWidth,
			len(cfg.Cars)*carCellAllocation+len(cfg.Bikes)*bikeCellAllocation),
		rng:     rand.New(rand.NewSource(seed)),
		workers: workers,
	}

	for i, bikeCfg := range cfg.Bikes {
		bike, err := NewBike(bikeCfg)
		if err != nil {
			return nil, fmt.Errorf("bike %d: %w", i, err)
		}
		r.bikes = append(r.bikes, bike)
	}
	for i, carCfg := range cfg.Cars {
		car, err := NewCar(carCfg)
		if err != nil {
			return nil, fmt.Errorf("car %d: %w", i, err)
		}
		r.cars = append(r.cars, car)
	}

	if err := r.insertAll(VehicleCar); err != nil {
		return nil, fmt.Errorf("initial car placement: %w", err)
	}
	if err := r.insertAll(VehicleBike); err != nil {
		return nil, fmt.Errorf("initial bike placement: %w", err)
	}
	return r, nil
}

func (r *Road) Length() int         { return r.length }
func (r *Road) TotalWidth() int     { return r.totalWidth }
func (r *Road) MotorLaneWidth() int { return r.motorLaneWidth }
func (r *Road) NumBikes() int       { return len(r.bikes) }
func (r *Road) NumCars() int        { return len(r.cars) }

// Cells exposes the occupancy index read-only, for scanners and telemetry.
func (r *Road) Cells() *RoadCells { return r.cells }

// isCollisionFor reports whether the occupier's cells hit any vehicle other
// than self. Cells off the road count as collisions, so a widening car cannot
// splay past the right edge.
func (r *Road) isCollisionFor(occ RectOccupier, self Vehicle) bool {
	if !occ.WithinRoad(r.totalWidth) {
		return true
	}
	for _, c := range occ.Cells(r.length) {
		if found, occupied := r.cells.Get(c); occupied && found != self {
			return true
		}
	}
	return false
}

// frontGapFor is the road-level front gap: the minimum per-column gap over
// the occupier's front-edge cells.
func (r *Road) frontGapFor(occ RectOccupier) int {
	gap := r.length
	for _, c := range occ.FrontEdge(r.length) {
		if g := r.cells.FrontGap(c, 0); g < gap {
			gap = g
		}
	}
	return gap
}

// frontGapIgnoring is frontGapFor with self's own cells transparent. Used to
// rank a vehicle's hypothetical placements: the body moves with the
// placement, so it is never an obstacle to itself.
func (r *Road) frontGapIgnoring(occ RectOccupier, self Vehicle) int {
	gap := r.length
	for _, c := range occ.FrontEdge(r.length) {
		g := r.length
		for d := 1; d < r.length; d++ {
			if v, occupied := r.cells.Get(Coord{Lat: c.Lat, Long: c.Long + d}); occupied && v != self {
				g = d - 1
				break
			}
		}
		if g < gap {
			gap = g
		}
	}
	return gap
}

// isBlocking reports whether a trailing motor-lane car could reach the cell
// next tick: its potential next speed strictly exceeds its wrapped distance
// to the cell.
func (r *Road) isBlocking(c Coord) bool {
	carID, found := r.cells.FirstCarBack(c, 0)
	if !found {
		return false
	}
	car := r.cars[carID]
	distance := posMod(c.Long-car.front, r.length)
	return car.PotentialNextSpeed() > distance
}

// Step advances the simulation one tick: bike lateral phase, bike forward
// phase, car phase. An insertion collision in the forward or car phase is an
// engine invariant violation and aborts the tick with diagnostic context.
func (r *Road) Step() error {
	if err := r.bikesLateralPhase(); err != nil {
		return fmt.Errorf("bike lateral phase: %w", err)
	}
	if err := r.bikesForwardPhase(); err != nil {
		return fmt.Errorf("bike forward phase: %w", err)
	}
	if err := r.carsPhase(); err != nil {
		return fmt.Errorf("car phase: %w", err)
	}
	return nil
}

type bikeMove struct {
	id    int
	occ   RectOccupier
	speed int
}

type carMove struct {
	id    int
	front int
	speed int
}

// bikesLateralPhase gathers lateral proposals in parallel, then serializes
// acceptance in a shuffled order: parallel proposals may conflict with one
// another, and randomized acceptance keeps the conflict resolution fair. A
// bike whose proposal lost its cells simply keeps its pre-tick occupation;
// that outcome is expected and silent.
func (r *Road) bikesLateralPhase() error {
	if len(r.bikes) == 0 {
		return nil
	}
	moves := r.forEachBike(func(id int, b *Bike, rng *rand.Rand) bikeMove {
		return bikeMove{id: id, occ: b.lateralProposal(r, id, rng)}
	})

	r.removeAll(VehicleBike)
	for _, id := range r.rng.Perm(len(r.bikes)) {
		bike := r.bikes[id]
		chosen := moves[id].occ
		if !r.cellsFree(chosen) {
			chosen = bike.occ
		}
		if err := r.insertOccupation(chosen, Vehicle{Kind: VehicleBike, ID: id}); err != nil {
			return err
		}
		bike.occ = chosen
	}
	return nil
}

// bikesForwardPhase advances every bike by its gap-bounded speed. Proposals
// read the post-lateral index, so reinsertion cannot collide unless the
// engine itself is broken.
func (r *Road) bikesForwardPhase() error {
	if len(r.bikes) == 0 {
		return nil
	}
	moves := r.forEachBike(func(id int, b *Bike, rng *rand.Rand) bikeMove {
		occ, speed := b.forwardNext(r, rng)
		return bikeMove{id: id, occ: occ, speed: speed}
	})

	r.removeAll(VehicleBike)
	for _, mv := range moves {
		if err := r.insertOccupation(mv.occ, Vehicle{Kind: VehicleBike, ID: mv.id}); err != nil {
			return err
		}
		r.bikes[mv.id].occ = mv.occ
		r.bikes[mv.id].speed = mv.speed
	}
	return nil
}

// carsPhase advances every car at its fastest safe speed against the
// post-bike index.
func (r *Road) carsPhase() error {
	if len(r.cars) == 0 {
		return nil
	}
	moves := r.forEachCar(func(id int, c *Car, rng *rand.Rand) carMove {
		front, speed := c.advanced(r, id, rng)
		return carMove{id: id, front: front, speed: speed}
	})

	r.removeAll(VehicleCar)
	for _, mv := range moves {
		car := r.cars[mv.id]
		occ := car.occupationAt(mv.front, mv.speed)
		if err := r.insertOccupation(occ, Vehicle{Kind: VehicleCar, ID: mv.id}); err != nil {
			return err
		}
		car.front = mv.front
		car.speed = mv.speed
	}
	return nil
}

// forEachBike fans the bike cohort out over the worker pool and fans the
// results back in. Workers receive a read-only view of the road plus their
// own RNG seeded from the road RNG, so no draw order is shared.
func (r *Road) forEachBike(compute func(id int, b *Bike, rng *rand.Rand) bikeMove) []bikeMove {
	outs := make([]<-chan bikeMove, 0, r.workers)
	for _, seg := range splitSegments(len(r.bikes), r.workers) {
		out := make(chan bikeMove)
		outs = append(outs, out)
		go func(lo, hi int, rng *rand.Rand) {
			defer close(out)
			for id := lo; id < hi; id++ {
				out <- compute(id, r.bikes[id], rng)
			}
		}(seg[0], seg[1], rand.New(rand.NewSource(r.rng.Int63())))
	}

	done := make(chan struct{})
	defer close(done)
	moves := make([]bikeMove, len(r.bikes))
	for mv := range channerics.Merge(done, outs...) {
		moves[mv.id] = mv
	}
	return moves
}

func (r *Road) forEachCar(compute func(id int, c *Car, rng *rand.Rand) carMove) []carMove {
	outs := make([]<-chan carMove, 0, r.workers)
	for _, seg := range splitSegments(len(r.cars), r.workers) {
		out := make(chan carMove)
		outs = append(outs, out)
		go func(lo, hi int, rng *rand.Rand) {
			defer close(out)
			for id := lo; id < hi; id++ {
				out <- compute(id, r.cars[id], rng)
			}
		}(seg[0], seg[1], rand.New(rand.NewSource(r.rng.Int63())))
	}

	done := make(chan struct{})
	defer close(done)
	moves := make([]carMove, len(r.cars))
	for mv := range channerics.Merge(done, outs...) {
		moves[mv.id] = mv
	}
	return moves
}

// splitSegments divides n items as evenly as possible into at most workers
// half-open [lo, hi) ranges.
func splitSegments(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	base := n / workers
	rem := n % workers

	segs := make([][2]int, 0, workers)
	lo := 0
	for i := 0; i < workers; i++ {
		hi := lo + base
		if rem > 0 {
			hi++
			rem--
		}
		segs = append(segs, [2]int{lo, hi})
		lo = hi
	}
	return segs
}

func (r *Road) cellsFree(occ RectOccupier) bool {
	for _, c := range occ.Cells(r.length) {
		if _, occupied := r.cells.Get(c); occupied {
			return false
		}
	}
	return true
}

func (r *Road) insertOccupation(occ RectOccupier, v Vehicle) error {
	for _, c := range occ.Cells(r.length) {
		if err := r.cells.insert(c, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Road) insertAll(kind VehicleKind) error {
	switch kind {
	case VehicleBike:
		for id, b := range r.bikes {
			if err := r.insertOccupation(b.occ, Vehicle{Kind: VehicleBike, ID: id}); err != nil {
				return err
			}
		}
	case VehicleCar:
		for id, c := range r.cars {
			if err := r.insertOccupation(c.Occupation(), Vehicle{Kind: VehicleCar, ID: id}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Road) removeAll(kind VehicleKind) {
	switch kind {
	case VehicleBike:
		for _, b := range r.bikes {
			for _, c := range b.occ.Cells(r.length) {
				r.cells.remove(c)
			}
		}
	case VehicleCar:
		for _, car := range r.cars {
			for _, c := range car.Occupation().Cells(r.length) {
				r.cells.remove(c)
			}
		}
	}
}
