package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/nicktill/dimcluster/pkg/cluster"
)

// fleet simulates hosts that belong to load groups. Hosts in a group
// follow the group's random walk plus a fixed per-host offset, so with a
// modest eps each group clusters together.
type fleet struct {
	rng     *rand.Rand
	groups  []float64
	hosts   []host
	tick    int64
	spacing float64
}

type host struct {
	name   string
	group  int
	offset float64
}

func newFleet(groups, hostsPerGroup int, seed int64) *fleet {
	f := &fleet{
		rng:     rand.New(rand.NewSource(seed)),
		groups:  make([]float64, groups),
		spacing: 50,
	}
	for g := 0; g < groups; g++ {
		f.groups[g] = float64(g) * f.spacing
		for h := 0; h < hostsPerGroup; h++ {
			f.hosts = append(f.hosts, host{
				name:   fmt.Sprintf("g%d-host%d", g, h),
				group:  g,
				offset: float64(h) * 0.1,
			})
		}
	}
	return f
}

// dimensions lists the host names in fleet order
func (f *fleet) dimensions() []string {
	dims := make([]string, len(f.hosts))
	for i, h := range f.hosts {
		dims[i] = h.name
	}
	return dims
}

// next advances every group one step and returns the row for that tick
func (f *fleet) next() cluster.Row {
	for g := range f.groups {
		step := f.rng.Float64()*2 - 1
		base := float64(g) * f.spacing
		// pull back toward the group's base so groups never cross
		f.groups[g] = base + math.Max(-10, math.Min(10, f.groups[g]-base+step))
	}

	row := cluster.Row{cluster.TimestampField: float64(f.tick)}
	for _, h := range f.hosts {
		row[h.name] = f.groups[h.group] + h.offset
	}
	f.tick++
	return row
}
