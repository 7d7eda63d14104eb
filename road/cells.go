package road

import "fmt"

// VehicleKind tags an index entry as belonging to the bike or car cohort.
type VehicleKind int

const (
	VehicleBike VehicleKind = iota
	VehicleCar
)

func (k VehicleKind) String() string {
	switch k {
	case VehicleBike:
		return "bike"
	case VehicleCar:
		return "car"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Vehicle is the handle stored in the occupancy index: a cohort tag plus the
// vehicle's stable index in its cohort array. The index never owns agents,
// only these handles, so proposal workers can share it read-only.
type Vehicle struct {
	Kind VehicleKind
	ID   int
}

func (v Vehicle) String() string {
	return fmt.Sprintf("%s %d", v.Kind, v.ID)
}

// Preallocation factors for the cell map, tunable for performance.
const (
	carCellAllocation  = 12
	bikeCellAllocation = 4
)

// RoadCells is the sparse occupancy index: a map from cell to the vehicle
// occupying it. Between ticks it exactly covers the union of all agent cells
// and never maps one cell to two agents.
type RoadCells struct {
	length int
	width  int
	cells  map[Coord]Vehicle
}

func newRoadCells(length, width, capacity int) *RoadCells {
	return &RoadCells{
		length: length,
		width:  width,
		cells:  make(map[Coord]Vehicle, capacity),
	}
}

// validateCoord normalizes the long axis onto the ring and rejects lats that
// fall off the bounded width.
func (rc *RoadCells) validateCoord(c Coord) (Coord, error) {
	if c.Lat < 0 || c.Lat >= rc.width {
		return Coord{}, fmt.Errorf("%w: lat %d outside road width %d", ErrOffRoad, c.Lat, rc.width)
	}
	return Coord{Lat: c.Lat, Long: posMod(c.Long, rc.length)}, nil
}

// Get returns the vehicle occupying the cell, if any. The long axis is
// normalized; lats outside the road are simply unoccupied.
func (rc *RoadCells) Get(c Coord) (Vehicle, bool) {
	v, ok := rc.cells[Coord{Lat: c.Lat, Long: posMod(c.Long, rc.length)}]
	return v, ok
}

func (rc *RoadCells) insert(c Coord, v Vehicle) error {
	coord, err := rc.validateCoord(c)
	if err != nil {
		return err
	}
	if found, occupied := rc.cells[coord]; occupied {
		return &CollisionError{Cell: coord, Occupant: found, Inserted: v}
	}
	rc.cells[coord] = v
	return nil
}

func (rc *RoadCells) remove(c Coord) (Vehicle, bool) {
	coord := Coord{Lat: c.Lat, Long: posMod(c.Long, rc.length)}
	v, ok := rc.cells[coord]
	if ok {
		delete(rc.cells, coord)
	}
	return v, ok
}

func (rc *RoadCells) size() int {
	return len(rc.cells)
}

// FrontGap counts the empty cells strictly ahead of c in its lat column, up
// to max (the road length when max <= 0). The scan wraps toroidally; when the
// column holds nothing within range, max itself is returned.
func (rc *RoadCells) FrontGap(c Coord, max int) int {
	if max <= 0 || max > rc.length {
		max = rc.length
	}
	for d := 1; d < max; d++ {
		if _, occupied := rc.Get(Coord{Lat: c.Lat, Long: c.Long + d}); occupied {
			return d - 1
		}
	}
	return max
}

// FirstCarBack scans the cells strictly behind c in its lat column, wrapping,
// up to max (road length when max <= 0), and returns the id of the first car
// found. Bikes encountered do not terminate the scan; only trailing cars are
// of interest to the safety logic.
func (rc *RoadCells) FirstCarBack(c Coord, max int) (int, bool) {
	if max <= 0 || max > rc.length {
		max = rc.length
	}
	for d := 1; d < max; d++ {
		v, occupied := rc.Get(Coord{Lat: c.Lat, Long: c.Long - d})
		if occupied && v.Kind == VehicleCar {
			return v.ID, true
		}
	}
	return 0, false
}

// RouteWidth returns the smallest lat occupied at the given long slice, or the
// total road width when the slice is free. It proxies how wide the open
// channel is at that slice.
func (rc *RoadCells) RouteWidth(long int) int {
	for lat := 0; lat < rc.width; lat++ {
		if _, occupied := rc.Get(Coord{Lat: lat, Long: long}); occupied {
			return lat
		}
	}
	return rc.width
}
