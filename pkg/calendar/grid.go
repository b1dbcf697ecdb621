package calendar

import (
	"errors"
	"fmt"
)

var ErrOffGrid = errors.New("time is not one of the bookable slots")

// Grid enumerates the selectable times of the operating window, both ends
// included: 08:00 to 21:00 in 30 minute steps gives 27 values.
type Grid struct {
	open  Clock
	close Clock
	step  int
	slots []Clock
	index map[Clock]int
}

func NewGrid(open, close Clock, stepMinutes int) (*Grid, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("slot step must be positive, got %d", stepMinutes)
	}
	if close <= open {
		return nil, fmt.Errorf("operating window must end after it opens (%s - %s)", open, close)
	}

	g := &Grid{
		open:  open,
		close: close,
		step:  stepMinutes,
		index: make(map[Clock]int),
	}
	for c := open; c <= close; c += Clock(stepMinutes) {
		g.index[c] = len(g.slots)
		g.slots = append(g.slots, c)
	}
	return g, nil
}

func (g *Grid) Step() int    { return g.step }
func (g *Grid) Open() Clock  { return g.open }
func (g *Grid) Close() Clock { return g.close }

func (g *Grid) Slots() []Clock {
	out := make([]Clock, len(g.slots))
	copy(out, g.slots)
	return out
}

func (g *Grid) Index(c Clock) (int, bool) {
	i, ok := g.index[c]
	return i, ok
}

// Minutes returns the length of start..end counted in whole slots. The result
// is negative or zero when end does not come after start.
func (g *Grid) Minutes(start, end Clock) (int, error) {
	startIdx, ok := g.Index(start)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrOffGrid, start)
	}
	endIdx, ok := g.Index(end)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrOffGrid, end)
	}
	return (endIdx - startIdx) * g.step, nil
}

// Intervals returns every consecutive pair of slots, the rows of an
// availability table.
func (g *Grid) Intervals() [][2]Clock {
	out := make([][2]Clock, 0, len(g.slots))
	for i := 0; i+1 < len(g.slots); i++ {
		out = append(out, [2]Clock{g.slots[i], g.slots[i+1]})
	}
	return out
}

// Dates lists n consecutive days starting at from.
func Dates(from Date, n int) []Date {
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, from.AddDays(i))
	}
	return out
}
