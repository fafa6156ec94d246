// Package interconnect models the networks that route banks to compute
// units. The compiler queries them as oracles.
package interconnect

import (
	"fmt"
	"math/bits"
)

// Free marks a unit port that no bank feeds.
const Free = -1

// Permutation maps each unit port to the bank port feeding it. One bank may
// feed several units.
type Permutation []int

// NewPermutation creates a permutation with every unit free.
func NewPermutation(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = Free
	}

	return p
}

// Set records that bank feeds unit.
func (p Permutation) Set(bank, unit int) {
	if p[unit] != Free && p[unit] != bank {
		panic(fmt.Sprintf("unit %d already fed by bank %d", unit, p[unit]))
	}

	p[unit] = bank
}

// Banks returns the set of banks in use.
func (p Permutation) Banks() map[int]bool {
	used := make(map[int]bool)
	for _, b := range p {
		if b != Free {
			used[b] = true
		}
	}

	return used
}

// Oracle answers routing questions for one network.
type Oracle interface {
	// NumPorts returns the number of ports on each side.
	NumPorts() int

	// ApplyPermute resets the network to carry p. It returns false if the
	// network cannot route p.
	ApplyPermute(p Permutation) bool

	// IsRouteFree tells if bank can additionally reach unit.
	IsRouteFree(bank, unit int) bool

	Latency() int
	DataReqLatency() int
	DataReadLatency() int
	DataWriteLatency() int

	// Clone returns an independent copy, including the applied permutation.
	Clone() Oracle

	Reset()
}

// Type names a network topology.
type Type string

// Supported topologies.
const (
	TypeCrossbar Type = "crossbar"
	TypeBenes    Type = "benes"
	TypeBanyan   Type = "banyan"
)

// ParseType converts a topology name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCrossbar, TypeBenes, TypeBanyan:
		return Type(s), nil
	case "benes_vanilla":
		return TypeBenes, nil
	default:
		return "", fmt.Errorf("unknown interconnect type %q", s)
	}
}

// Stages returns ceil(log2(n)), with a minimum of one.
func Stages(n int) int {
	if n <= 2 {
		return 1
	}

	return bits.Len(uint(n - 1))
}

// New creates a network connecting n banks to n units.
func New(t Type, n int) Oracle {
	stages := Stages(n)

	switch t {
	case TypeCrossbar:
		return newCrossbar(1<<stages, 1)
	case TypeBenes:
		return newCrossbar(1<<stages, 2*stages-1)
	case TypeBanyan:
		return newBanyan(stages)
	default:
		panic(fmt.Sprintf("unknown interconnect type %q", t))
	}
}

// base keeps the inverse mapping shared by every topology.
type base struct {
	mapping Permutation
	latency int
}

func (b *base) NumPorts() int {
	return len(b.mapping)
}

func (b *base) Latency() int {
	return b.latency
}

func (b *base) DataReqLatency() int {
	return b.latency
}

func (b *base) DataReadLatency() int {
	return b.latency + 1
}

func (b *base) DataWriteLatency() int {
	return b.latency
}

func (b *base) checkPorts(p Permutation) {
	if len(p) > len(b.mapping) {
		panic(fmt.Sprintf("permutation of %d ports on a %d-port network",
			len(p), len(b.mapping)))
	}
}
