// Package race simulates a multi-lane race. It owns lane progress and the
// per-stage advancement rules; payout math lives with the session engine.
package race

import (
	rand "math/rand/v2"
)

// DefaultTrackLength is the number of track cells a lane crosses. A lane is
// finished once its position reaches the final cell.
const DefaultTrackLength = 20

var laneNames = []string{
	"Seabiscuit", "Glue Factory", "Hoof Hearted", "Galloping Ghost",
	"Usain Colt", "Pony Soprano", "Forrest Jump", "Lil' Sebastian",
	"Bet A Million", "Always Broke", "Sofa King Fast", "Harry Trotter",
	"Blazing Saddles", "Debt Collector", "Spinning Plates", "Pixelated Steed",
}

var laneIcons = []string{"🐴", "🐎", "🦄", "🏇"}

// Lane is one wagerable option and its progress along the track.
type Lane struct {
	Index    int
	Name     string
	Icon     string
	Odds     int // flavor odds (x:1) that weight movement, not payouts
	Position int
}

// Resolver advances lane progress one stage at a time and detects finishes.
type Resolver interface {
	// Advance moves every lane one stage forward in place.
	Advance(lanes []Lane)

	// Finished reports the first lane index at or beyond the finish line,
	// or false when no lane has finished.
	Finished(lanes []Lane) (int, bool)

	// ForceFinish pushes the current leader across the finish line and
	// returns its index. Guarantees the race terminates.
	ForceFinish(lanes []Lane) int
}

// NewField picks n distinct lanes with randomized names, icons and odds
// between 2:1 and 25:1.
func NewField(rng *rand.Rand, n int) []Lane {
	idx := rng.Perm(len(laneNames))[:n]
	lanes := make([]Lane, 0, n)
	for i, j := range idx {
		lanes = append(lanes, Lane{
			Index: i,
			Name:  laneNames[j],
			Icon:  laneIcons[rng.IntN(len(laneIcons))],
			Odds:  2 + rng.IntN(24),
		})
	}
	return lanes
}

// Winners returns the lanes tied for first at or beyond the finish line.
// Empty when no lane has finished.
func Winners(lanes []Lane, trackLength int) []int {
	finish := trackLength - 1
	best := -1
	for _, l := range lanes {
		if l.Position > best {
			best = l.Position
		}
	}
	if best < finish {
		return nil
	}
	var out []int
	for _, l := range lanes {
		if l.Position == best {
			out = append(out, l.Index)
		}
	}
	return out
}

// OddsResolver advances lanes with odds-weighted movement: shorter odds move
// more often, with a floor so every lane makes visible progress.
type OddsResolver struct {
	rng         *rand.Rand
	trackLength int
}

// NewOddsResolver creates a resolver seeded deterministically from seed.
func NewOddsResolver(seed int64, trackLength int) *OddsResolver {
	if trackLength <= 1 {
		trackLength = DefaultTrackLength
	}
	return &OddsResolver{rng: newRand(seed), trackLength: trackLength}
}

func (r *OddsResolver) Advance(lanes []Lane) {
	finish := r.trackLength - 1
	moved := false
	for i := range lanes {
		l := &lanes[i]
		if l.Position >= finish {
			continue
		}
		p := 0.1 + (1.0/float64(l.Odds))*0.5
		if p < 0.35 {
			p = 0.35
		}
		step := 0
		if r.rng.Float64() < p {
			step = 1 + r.rng.IntN(3)
		}
		if step > 0 {
			l.Position += step
			if l.Position > finish {
				l.Position = finish
			}
			moved = true
		}
	}
	// Keep the race moving even on an all-stall stage.
	if !moved && len(lanes) > 0 {
		i := r.rng.IntN(len(lanes))
		if lanes[i].Position < finish {
			lanes[i].Position++
		}
	}
}

func (r *OddsResolver) Finished(lanes []Lane) (int, bool) {
	finish := r.trackLength - 1
	for _, l := range lanes {
		if l.Position >= finish {
			return l.Index, true
		}
	}
	return 0, false
}

func (r *OddsResolver) ForceFinish(lanes []Lane) int {
	leader := 0
	for i := 1; i < len(lanes); i++ {
		if lanes[i].Position > lanes[leader].Position {
			leader = i
		}
	}
	lanes[leader].Position = r.trackLength - 1
	return lanes[leader].Index
}

var _ Resolver = (*OddsResolver)(nil)
