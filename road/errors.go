package road

import (
	"errors"
	"fmt"
)

var (
	// ErrBadGeometry reports road dimensions that cannot form a grid.
	ErrBadGeometry = errors.New("road geometry is invalid")
	// ErrBadVehicle reports a vehicle whose parameters fail construction
	// validation: speed over cap, nonpositive dimensions, probabilities
	// outside [0,1].
	ErrBadVehicle = errors.New("vehicle parameters are invalid")
	// ErrOffRoad reports a placement with cells outside the road width.
	ErrOffRoad = errors.New("placement is off the road")
)

// CollisionError reports two vehicles contending for one cell. At
// construction it is a caller error; after a forward or car phase it is an
// engine invariant violation and aborts the tick.
type CollisionError struct {
	Cell     Coord
	Occupant Vehicle
	Inserted Vehicle
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("inserted %s collided with %s at cell (%d,%d)",
		e.Inserted, e.Occupant, e.Cell.Lat, e.Cell.Long)
}
