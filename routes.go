package fogsim

// routes.go computes the path a tuple takes between two devices of the tree.
//
// The general approach is the one every tree admits: ascend from both endpoints,
// the deeper one first, until the two walks meet at the least common ancestor.
// The hops on the source side are crossed upward, the hops on the destination side
// downward.  The latency of a link is the same in both directions, the bandwidth is
// not: an upward hop out of device c uses c's uplink bandwidth, a downward hop into c
// uses c's downlink bandwidth.
//
// Routes are cached per (src,dst).  Failing to find one, we look for a cached
// route from dst to src, which by symmetry crosses the same links, just reversed.

import (
	"math"
	"strings"
)

// RouteHop describes the crossing of one tree link
type RouteHop struct {
	From, To  DeviceID
	Up        bool
	Latency   float64
	Bandwidth float64
}

// Route is the sequence of links between two devices, with its aggregate latency
// and bottleneck bandwidth.  An empty route has infinite bandwidth
type Route struct {
	Src, Dst  DeviceID
	Hops      []RouteHop
	Latency   float64
	Bandwidth float64
}

// TransmitDelay is the time needed to move a payload of the given size along the route
func (rt *Route) TransmitDelay(payload float64) float64 {
	if len(rt.Hops) == 0 {
		return 0.0
	}
	return rt.Latency + payload/rt.Bandwidth
}

// rtEndpts holds the IDs of the starting and ending points of a route
type rtEndpts struct {
	srcID, dstID DeviceID
}

// linkBndwdth gives the bandwidth of the link between child and its parent, in the direction given
func (tp *Topology) linkBndwdth(child DeviceID, up bool) float64 {
	if up {
		return tp.devices[child].UpBw
	}
	return tp.devices[child].DownBw
}

// finishRoute fills in the aggregate latency and bottleneck bandwidth
func finishRoute(rt *Route) *Route {
	rt.Latency = 0.0
	rt.Bandwidth = math.Inf(1)
	for _, hop := range rt.Hops {
		rt.Latency += hop.Latency
		rt.Bandwidth = math.Min(rt.Bandwidth, hop.Bandwidth)
	}
	return rt
}

// Route returns the route from src to dst, from the cache if it has been computed already
func (tp *Topology) Route(src, dst DeviceID) *Route {
	if !tp.known(src) || !tp.known(dst) {
		return nil
	}

	endpoints := rtEndpts{srcID: src, dstID: dst}
	rt, found := tp.rtCache[endpoints]
	if found {
		return rt
	}

	// a route in the other direction crosses the same links
	rev, found := tp.rtCache[rtEndpts{srcID: dst, dstID: src}]
	if found {
		rt = &Route{Src: src, Dst: dst, Hops: make([]RouteHop, 0, len(rev.Hops))}
		for idx := len(rev.Hops) - 1; idx > -1; idx-- {
			hop := rev.Hops[idx]
			// the child end of the link is whichever endpoint is lower in the tree
			child := hop.From
			if !hop.Up {
				child = hop.To
			}
			rt.Hops = append(rt.Hops, RouteHop{From: hop.To, To: hop.From, Up: !hop.Up,
				Latency: hop.Latency, Bandwidth: tp.linkBndwdth(child, !hop.Up)})
		}
		tp.rtCache[endpoints] = finishRoute(rt)
		return rt
	}

	rt = tp.routeFrom(src, dst)
	tp.rtCache[endpoints] = rt
	return rt
}

// routeFrom does the level-synchronized ascent
func (tp *Topology) routeFrom(src, dst DeviceID) *Route {
	tp.computeLevels()

	upHops := make([]RouteHop, 0)
	downHops := make([]RouteHop, 0)

	a, b := src, dst
	for tp.devices[a].Level > tp.devices[b].Level {
		upHops = append(upHops, tp.upHop(a))
		a = tp.devices[a].Parent
	}
	for tp.devices[b].Level > tp.devices[a].Level {
		downHops = append(downHops, tp.downHop(b))
		b = tp.devices[b].Parent
	}
	for a != b {
		upHops = append(upHops, tp.upHop(a))
		a = tp.devices[a].Parent
		downHops = append(downHops, tp.downHop(b))
		b = tp.devices[b].Parent
	}

	rt := &Route{Src: src, Dst: dst, Hops: upHops}

	// the downward hops were discovered from the destination backward
	for idx := len(downHops) - 1; idx > -1; idx-- {
		rt.Hops = append(rt.Hops, downHops[idx])
	}
	return finishRoute(rt)
}

func (tp *Topology) upHop(child DeviceID) RouteHop {
	dev := tp.devices[child]
	return RouteHop{From: child, To: dev.Parent, Up: true, Latency: dev.UplinkLatency, Bandwidth: dev.UpBw}
}

func (tp *Topology) downHop(child DeviceID) RouteHop {
	dev := tp.devices[child]
	return RouteHop{From: dev.Parent, To: child, Up: false, Latency: dev.UplinkLatency, Bandwidth: dev.DownBw}
}

// ShowRoute returns a string that lists the names of all the devices on a route
func (tp *Topology) ShowRoute(rt *Route) string {
	names := []string{tp.devices[rt.Src].Name}
	for _, hop := range rt.Hops {
		names = append(names, tp.devices[hop.To].Name)
	}
	return strings.Join(names, ",")
}
