package road

import (
	"fmt"
	"math/rand"
)

// TieBreak selects between the two documented strategies for equal-priority
// lateral options.
type TieBreak int

const (
	// TieBreakRightmost picks the candidate with the greatest right edge.
	TieBreakRightmost TieBreak = iota
	// TieBreakUniform picks uniformly at random among the best candidates.
	TieBreakUniform
)

// BikeConfig carries the construction parameters for one bike.
type BikeConfig struct {
	Front  int `json:"front"`
	Right  int `json:"right"`
	Width  int `json:"width"`
	Length int `json:"length"`

	Speed      int `json:"speed"`
	SpeedMax   int `json:"speed_max"`
	Accel      int `json:"accel"`
	LateralMax int `json:"lateral_max"`

	// IgnoreProb is the chance of skipping lateral deliberation for a tick;
	// DecelProb the chance of shedding one unit of speed after selection.
	IgnoreProb float64  `json:"ignore_prob"`
	DecelProb  float64  `json:"decel_prob"`
	TieBreak   TieBreak `json:"tie_break"`
}

// Bike is a rigid rectangle free to move laterally across the whole road and
// forward along it.
type Bike struct {
	occ        RectOccupier
	speed      int
	speedMax   int
	accel      int
	lateralMax int
	ignoreProb float64
	decelProb  float64
	tieBreak   TieBreak
}

// NewBike validates the config and builds a bike. No partial state persists
// on error.
func NewBike(cfg BikeConfig) (*Bike, error) {
	if cfg.Width <= 0 || cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: bike dims %dx%d must be positive", ErrBadVehicle, cfg.Width, cfg.Length)
	}
	if cfg.Speed < 0 || cfg.Speed > cfg.SpeedMax {
		return nil, fmt.Errorf("%w: bike speed %d outside [0, %d]", ErrBadVehicle, cfg.Speed, cfg.SpeedMax)
	}
	if cfg.Accel < 1 {
		return nil, fmt.Errorf("%w: bike accel %d must be at least 1", ErrBadVehicle, cfg.Accel)
	}
	if cfg.LateralMax < 0 {
		return nil, fmt.Errorf("%w: bike lateralMax %d must be nonnegative", ErrBadVehicle, cfg.LateralMax)
	}
	if cfg.IgnoreProb < 0 || cfg.IgnoreProb > 1 {
		return nil, fmt.Errorf("%w: bike ignoreProb %v outside [0,1]", ErrBadVehicle, cfg.IgnoreProb)
	}
	if cfg.DecelProb < 0 || cfg.DecelProb > 1 {
		return nil, fmt.Errorf("%w: bike decelProb %v outside [0,1]", ErrBadVehicle, cfg.DecelProb)
	}
	return &Bike{
		occ: RectOccupier{
			Front:  cfg.Front,
			Right:  cfg.Right,
			Width:  cfg.Width,
			Length: cfg.Length,
		},
		speed:      cfg.Speed,
		speedMax:   cfg.SpeedMax,
		accel:      cfg.Accel,
		lateralMax: cfg.LateralMax,
		ignoreProb: cfg.IgnoreProb,
		decelProb:  cfg.DecelProb,
		tieBreak:   cfg.TieBreak,
	}, nil
}

// Occupation is the bike's current footprint.
func (b *Bike) Occupation() RectOccupier {
	return b.occ
}

func (b *Bike) Speed() int {
	return b.speed
}

// lateralProposal computes the bike's preferred post-lateral occupation
// against the frozen index. The result is a proposal; the scheduler still
// serializes acceptance against sibling proposals.
func (b *Bike) lateralProposal(r *Road, id int, rng *rand.Rand) RectOccupier {
	if rng.Float64() < b.ignoreProb {
		return b.occ
	}

	cur := b.occ
	self := Vehicle{Kind: VehicleBike, ID: id}

	// Candidate right edges within lateral reach, kept when fully on the road
	// and collision-free against everything but the bike itself.
	feasible := make([]RectOccupier, 0, 2*b.lateralMax+1)
	for p := cur.Right - b.lateralMax; p <= cur.Right+b.lateralMax; p++ {
		cand := cur
		cand.Right = p
		if !cand.WithinRoad(r.totalWidth) {
			continue
		}
		if r.isCollisionFor(cand, self) {
			continue
		}
		feasible = append(feasible, cand)
	}

	// Safety filter. The mode is determined by the current occupation: a bike
	// partially in the motor lane whose back-left cell a trailing car can
	// reach next tick must clear out; otherwise candidates reaching leftward
	// of the current right edge are held to the same blocking test.
	onMotorLane := cur.OverlapsMotorLane(r.motorLaneWidth)
	var safe []RectOccupier
	if onMotorLane && r.isBlocking(cur.BackLeft()) {
		var motor, bikeLane []RectOccupier
		for _, cand := range feasible {
			if cand.OverlapsMotorLane(r.motorLaneWidth) {
				motor = append(motor, cand)
			} else {
				bikeLane = append(bikeLane, cand)
			}
		}
		if len(bikeLane) > 0 {
			safe = bikeLane
		} else if len(motor) > 0 {
			// No escape to the bike lane: edge rightward within the motor lane.
			rightmost := motor[0]
			for _, cand := range motor[1:] {
				if cand.Right > rightmost.Right {
					rightmost = cand
				}
			}
			safe = []RectOccupier{rightmost}
		}
	} else {
		for _, cand := range feasible {
			if cand.Left() < cur.Right && r.isBlocking(cand.BackLeft()) {
				continue
			}
			safe = append(safe, cand)
		}
	}
	if len(safe) == 0 {
		return cur
	}

	// Priority: largest front gap wins. At equal gap, candidates clear of the
	// motor lane beat ones still overlapping it (and are equal among
	// themselves); when every tied candidate overlaps the motor lane, the
	// smaller left edge wins.
	best := []RectOccupier{safe[0]}
	bestGap := r.frontGapIgnoring(safe[0], self)
	for _, cand := range safe[1:] {
		gap := r.frontGapIgnoring(cand, self)
		switch {
		case gap > bestGap:
			best = []RectOccupier{cand}
			bestGap = gap
		case gap == bestGap:
			best = append(best, cand)
		}
	}
	if len(best) > 1 {
		var bikeLane []RectOccupier
		for _, cand := range best {
			if !cand.OverlapsMotorLane(r.motorLaneWidth) {
				bikeLane = append(bikeLane, cand)
			}
		}
		switch {
		case len(bikeLane) > 0:
			best = bikeLane
		default:
			minLeft := best[0].Left()
			for _, cand := range best[1:] {
				if cand.Left() < minLeft {
					minLeft = cand.Left()
				}
			}
			narrowed := best[:0]
			for _, cand := range best {
				if cand.Left() == minLeft {
					narrowed = append(narrowed, cand)
				}
			}
			best = narrowed
		}
	}

	switch b.tieBreak {
	case TieBreakUniform:
		return best[rng.Intn(len(best))]
	default:
		chosen := best[0]
		for _, cand := range best[1:] {
			if cand.Right > chosen.Right {
				chosen = cand
			}
		}
		return chosen
	}
}

// forwardNext computes the bike's advanced occupation and speed against the
// post-lateral index. Bounding the speed by the front gap makes forward
// collisions structurally impossible when every bike reads a consistent
// index.
func (b *Bike) forwardNext(r *Road, rng *rand.Rand) (RectOccupier, int) {
	next := b.speed + b.accel
	if next > b.speedMax {
		next = b.speedMax
	}
	if gap := r.frontGapFor(b.occ); gap < next {
		next = gap
	}
	if rng.Float64() < b.decelProb && next > 0 {
		next--
	}
	occ := b.occ
	occ.Front = posMod(occ.Front+next, r.length)
	return occ, next
}
