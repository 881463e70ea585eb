package racechrono

import (
	"math"

	"github.com/kellegous/poop"
)

// Equation is one monitored computed quantity. The peer identifies it
// on the wire by its index in the owning Registry; the expression is
// the formula text the peer displays to the operator.
type Equation struct {
	Expr     string
	scaleInv float32
	value    float32
}

func newEquation(expr string, scale float32) (*Equation, error) {
	if scale <= 0 {
		return nil, poop.Newf("scale must be positive, got %g", scale)
	}
	return &Equation{
		Expr:     expr,
		scaleInv: 1 / scale,
		value:    float32(math.NaN()),
	}, nil
}

// Value returns the last decoded reading. It is NaN until a reading
// arrives and again after a reset.
func (e *Equation) Value() float32 {
	return e.value
}

// Valid reports whether a reading has arrived since the last reset.
func (e *Equation) Valid() bool {
	return !math.IsNaN(float64(e.value))
}

func (e *Equation) updateFromRaw(raw int32) {
	if raw == invalidValueRaw {
		e.value = float32(math.NaN())
		return
	}
	e.value = float32(raw) * e.scaleInv
}

func (e *Equation) clear() {
	e.value = float32(math.NaN())
}

// Registry is the ordered set of monitored equations. An equation's
// index is its position in the order equations were added; indexes are
// stable and equations are never removed, only reset. The wire format
// can address indexes 0 through 255.
type Registry struct {
	eqs []*Equation
}

// Add appends an equation whose index is the current registry size.
func (r *Registry) Add(expr string, scale float32) (*Equation, error) {
	eq, err := newEquation(expr, scale)
	if err != nil {
		return nil, poop.Chain(err)
	}
	r.eqs = append(r.eqs, eq)
	return eq, nil
}

// Decode applies a raw reading to the equation at index. It reports
// false when index names no registered equation.
func (r *Registry) Decode(index byte, raw int32) bool {
	if int(index) >= len(r.eqs) {
		return false
	}
	r.eqs[index].updateFromRaw(raw)
	return true
}

// ResetAll clears every stored equation's value back to NaN. The
// stored equations mutate in place, so values handed out by Add
// observe the reset.
func (r *Registry) ResetAll() {
	for _, eq := range r.eqs {
		eq.clear()
	}
}

// Len returns the number of registered equations.
func (r *Registry) Len() int {
	return len(r.eqs)
}

// At returns the equation at index i.
func (r *Registry) At(i int) *Equation {
	return r.eqs[i]
}
