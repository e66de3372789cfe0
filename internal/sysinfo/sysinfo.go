// Package sysinfo samples host-level CPU, memory, and network figures for
// the dashboard widget. Readings are best effort: a probe failure yields
// zeros rather than an error.
package sysinfo

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// NetStats is the byte throughput since the previous sample.
type NetStats struct {
	Sent int64 `json:"sent"`
	Recv int64 `json:"recv"`
}

// Stats is one point-in-time reading. CPU and RAM are whole percentages.
type Stats struct {
	CPU int      `json:"cpu"`
	RAM int      `json:"ram"`
	Net NetStats `json:"net"`
}

// Collector holds the previous network counters so throughput can be
// reported as a delta. The first sample after construction reports zero
// throughput.
type Collector struct {
	mu     sync.Mutex
	primed bool
	lastTx uint64
	lastRx uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

// Sample reads current host stats. Each probe degrades to zero on failure
// so one broken subsystem does not blank the whole widget.
func (c *Collector) Sample(ctx context.Context) Stats {
	var stats Stats

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPU = int(percents[0])
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.RAM = int(vm.UsedPercent)
	}
	stats.Net = c.sampleNet(ctx)
	return stats
}

func (c *Collector) sampleNet(ctx context.Context) NetStats {
	counters, err := gopsnet.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		return NetStats{}
	}
	return c.netDelta(counters[0].BytesSent, counters[0].BytesRecv)
}

// netDelta advances the stored counters and returns the throughput since
// the previous call. A counter that moved backwards (interface reset)
// reports zero for that direction.
func (c *Collector) netDelta(tx, rx uint64) NetStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.primed {
		c.primed = true
		c.lastTx, c.lastRx = tx, rx
		return NetStats{}
	}

	out := NetStats{}
	if tx >= c.lastTx {
		out.Sent = int64(tx - c.lastTx)
	}
	if rx >= c.lastRx {
		out.Recv = int64(rx - c.lastRx)
	}
	c.lastTx, c.lastRx = tx, rx
	return out
}
