package road

import (
	"fmt"
	"math"
	"math/rand"
)

// CarConfig carries the construction parameters for one car.
type CarConfig struct {
	Front  int `json:"front"`
	Length int `json:"length"`
	// BaseWidth, Alpha and Beta feed the speed-dependent width formula
	// width(s) = ceil(BaseWidth + Beta + Alpha*s). Faster cars splay wider.
	BaseWidth float64 `json:"base_width"`
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	Speed     int     `json:"speed"`
	SpeedMax  int     `json:"speed_max"`
	// SlowAccel applies while speed <= MaxSlowSpeed, FastAccel above it.
	SlowAccel    int     `json:"slow_accel"`
	FastAccel    int     `json:"fast_accel"`
	MaxSlowSpeed int     `json:"max_slow_speed"`
	DecelProb    float64 `json:"decel_prob"`
}

// Car is a motor vehicle that never changes lanes; its footprint is anchored
// at lat 0 and widens with speed. The width is not capped at the motor-lane
// width: only the road's right edge bounds it, so a wide enough car extends
// into the bike lane.
type Car struct {
	front      int
	length     int
	constWidth float64
	alpha      float64

	speed        int
	speedMax     int
	slowAccel    int
	fastAccel    int
	maxSlowSpeed int
	decelProb    float64
}

// NewCar validates the config and builds a car. No partial state persists on
// error.
func NewCar(cfg CarConfig) (*Car, error) {
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: car length %d must be positive", ErrBadVehicle, cfg.Length)
	}
	if cfg.Speed < 0 || cfg.Speed > cfg.SpeedMax {
		return nil, fmt.Errorf("%w: car speed %d outside [0, %d]", ErrBadVehicle, cfg.Speed, cfg.SpeedMax)
	}
	if cfg.SlowAccel < 0 || cfg.FastAccel < 0 {
		return nil, fmt.Errorf("%w: car accelerations must be nonnegative", ErrBadVehicle)
	}
	if cfg.DecelProb < 0 || cfg.DecelProb > 1 {
		return nil, fmt.Errorf("%w: car decelProb %v outside [0,1]", ErrBadVehicle, cfg.DecelProb)
	}
	if cfg.Alpha < 0 {
		return nil, fmt.Errorf("%w: car alpha %v must be nonnegative", ErrBadVehicle, cfg.Alpha)
	}
	car := &Car{
		front:        cfg.Front,
		length:       cfg.Length,
		constWidth:   cfg.BaseWidth + cfg.Beta,
		alpha:        cfg.Alpha,
		speed:        cfg.Speed,
		speedMax:     cfg.SpeedMax,
		slowAccel:    cfg.SlowAccel,
		fastAccel:    cfg.FastAccel,
		maxSlowSpeed: cfg.MaxSlowSpeed,
		decelProb:    cfg.DecelProb,
	}
	if car.effectiveWidth(0) < 1 {
		return nil, fmt.Errorf("%w: car width at rest is %d", ErrBadVehicle, car.effectiveWidth(0))
	}
	return car, nil
}

func (c *Car) Front() int {
	return c.front
}

func (c *Car) Speed() int {
	return c.speed
}

// effectiveWidth is the lateral occupancy at the given speed.
func (c *Car) effectiveWidth(speed int) int {
	return int(math.Ceil(c.constWidth + c.alpha*float64(speed)))
}

// occupationAt is the hypothetical footprint with the given front and speed.
func (c *Car) occupationAt(front, speed int) RectOccupier {
	w := c.effectiveWidth(speed)
	return RectOccupier{
		Front:  front,
		Right:  w - 1,
		Width:  w,
		Length: c.length,
	}
}

// Occupation is the car's current footprint.
func (c *Car) Occupation() RectOccupier {
	return c.occupationAt(c.front, c.speed)
}

// PotentialNextSpeed is speed plus the applicable acceleration, clamped to the
// cap and independent of any collision.
func (c *Car) PotentialNextSpeed() int {
	accel := c.fastAccel
	if c.speed <= c.maxSlowSpeed {
		accel = c.slowAccel
	}
	next := c.speed + accel
	if next > c.speedMax {
		next = c.speedMax
	}
	return next
}

// advanced computes the car's next front and speed against the current index:
// the fastest safe speed up to the potential speed, optionally slowed by the
// Bernoulli draw. The safety check at each candidate k uses the footprint the
// car would have at speed k, since width depends on speed.
func (c *Car) advanced(r *Road, id int, rng *rand.Rand) (front, speed int) {
	self := Vehicle{Kind: VehicleCar, ID: id}
	safe := 0
	for k := 1; k <= c.PotentialNextSpeed(); k++ {
		if r.isCollisionFor(c.occupationAt(c.front+k, k), self) {
			break
		}
		safe = k
	}
	if rng.Float64() < c.decelProb && safe > 0 {
		safe--
	}
	return posMod(c.front+safe, r.length), safe
}
