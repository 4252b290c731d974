package graph

import "fmt"

// Flags packs the travel directions of an edge and its speed class.
// Bit 0 is forward (From -> To), bit 1 is backward (To -> From), the
// remaining bits hold the speed in km/h divided by speedFactor.
type Flags uint32

const (
	FlagForward  Flags = 1
	FlagBackward Flags = 2
	FlagBoth           = FlagForward | FlagBackward

	speedFactor  = 2
	DefaultSpeed = 60 // km/h, used when an edge carries no speed
)

// NewFlags encodes a speed in km/h and the travel directions.
func NewFlags(speedKmh int, forward, backward bool) Flags {
	f := Flags(speedKmh/speedFactor) << 2
	if forward {
		f |= FlagForward
	}
	if backward {
		f |= FlagBackward
	}
	return f
}

func (f Flags) Forward() bool  { return f&FlagForward != 0 }
func (f Flags) Backward() bool { return f&FlagBackward != 0 }
func (f Flags) Both() bool     { return f&FlagBoth == FlagBoth }

// Directions strips the speed bits.
func (f Flags) Directions() Flags { return f & FlagBoth }

// Speed returns the encoded speed in km/h, falling back to DefaultSpeed.
func (f Flags) Speed() int {
	if s := int(f>>2) * speedFactor; s > 0 {
		return s
	}
	return DefaultSpeed
}

// Reverse swaps the forward and backward bits and keeps the speed.
func (f Flags) Reverse() Flags {
	if f.Both() || f.Directions() == 0 {
		return f
	}
	return f&^FlagBoth | (^f & FlagBoth)
}

// Weighting turns an edge's distance and flags into the cost used by
// contraction and queries.
type Weighting interface {
	Weight(distance float64, flags Flags) float64
	Name() string
}

// ShortestWeighting uses the raw distance in meters.
type ShortestWeighting struct{}

func (ShortestWeighting) Weight(distance float64, _ Flags) float64 { return distance }
func (ShortestWeighting) Name() string                             { return "shortest" }

// FastestWeighting uses travel time in seconds at the edge's speed.
type FastestWeighting struct{}

func (FastestWeighting) Weight(distance float64, flags Flags) float64 {
	return distance * 3.6 / float64(flags.Speed())
}

func (FastestWeighting) Name() string { return "fastest" }

// WeightingByName resolves a configured weighting.
func WeightingByName(name string) (Weighting, error) {
	switch name {
	case "", "fastest":
		return FastestWeighting{}, nil
	case "shortest":
		return ShortestWeighting{}, nil
	}
	return nil, fmt.Errorf("unknown weighting %q", name)
}
