package jukebox

import "sort"

// Two helper pools for methods to manage registered track ids. The
// unordered pool keeps a bare id set plus the largest id ever seen. The
// ordered pool additionally maintains a bijection between ids and
// consecutive positions [0, size), guarantees that ids are only ever added
// or removed at the end, and reports every position swap to an observer so
// per-track metadata stored in a parallel array can follow along.

// unorderedIDPool tracks a set of registered ids and the largest id ever
// registered.
type unorderedIDPool struct {
	registered map[TrackID]struct{}
	maxSeen    TrackID
}

func newUnorderedIDPool() *unorderedIDPool {
	return &unorderedIDPool{
		registered: make(map[TrackID]struct{}),
		maxSeen:    -1,
	}
}

func (p *unorderedIDPool) Size() int {
	return len(p.registered)
}

func (p *unorderedIDPool) MaxSeen() TrackID {
	return p.maxSeen
}

func (p *unorderedIDPool) Contains(id TrackID) bool {
	_, ok := p.registered[id]
	return ok
}

// Add registers the given ids and returns how many of them were new
func (p *unorderedIDPool) Add(ids []TrackID) int {
	added := 0
	for _, id := range ids {
		if _, ok := p.registered[id]; !ok {
			p.registered[id] = struct{}{}
			added++
			if id > p.maxSeen {
				p.maxSeen = id
			}
		}
	}
	return added
}

// Generate fills ids with maxSeen+1.. and registers them
func (p *unorderedIDPool) Generate(ids []TrackID) {
	for i := range ids {
		p.maxSeen++
		ids[i] = p.maxSeen
	}
	p.Add(ids)
}

// Remove deregisters the given ids and returns how many were known
func (p *unorderedIDPool) Remove(ids []TrackID) int {
	deleted := 0
	for _, id := range ids {
		if _, ok := p.registered[id]; ok {
			delete(p.registered, id)
			deleted++
		}
	}
	return deleted
}

// IDs returns the registered ids in ascending order
func (p *unorderedIDPool) IDs() []TrackID {
	ids := make([]TrackID, 0, len(p.registered))
	for id := range p.registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// idPoolObserver is notified synchronously whenever the ordered pool swaps
// two positions.
type idPoolObserver interface {
	swappedPositions(posA, posB int)
}

// orderedIDPool maintains the id set plus a stable id <-> position mapping.
// MoveToEnd and Remove change positions only through position swaps, which
// are reported to the observer. Add also rewrites the tail it appends to in
// input order, which can shift ids within that tail without a report.
type orderedIDPool struct {
	observer  idPoolObserver
	list      []TrackID
	positions map[TrackID]int
	maxSeen   TrackID
}

func newOrderedIDPool() *orderedIDPool {
	return &orderedIDPool{
		positions: make(map[TrackID]int),
		maxSeen:   -1,
	}
}

func (p *orderedIDPool) setObserver(obs idPoolObserver) {
	p.observer = obs
}

func (p *orderedIDPool) Size() int {
	return len(p.list)
}

func (p *orderedIDPool) MaxSeen() TrackID {
	return p.maxSeen
}

// PositionOf returns the position of an id, or -1 if it is not registered
func (p *orderedIDPool) PositionOf(id TrackID) int {
	if pos, ok := p.positions[id]; ok {
		return pos
	}
	return -1
}

// IDAt returns the id at the given position
func (p *orderedIDPool) IDAt(pos int) TrackID {
	return p.list[pos]
}

// IDs returns a copy of the id list in position order
func (p *orderedIDPool) IDs() []TrackID {
	ids := make([]TrackID, len(p.list))
	copy(ids, p.list)
	return ids
}

func (p *orderedIDPool) swapPositions(posA, posB int) {
	if posA == posB {
		return
	}
	idA := p.list[posA]
	idB := p.list[posB]
	p.list[posA] = idB
	p.list[posB] = idA
	p.positions[idA] = posB
	p.positions[idB] = posA
	if p.observer != nil {
		p.observer.swappedPositions(posA, posB)
	}
}

// MoveToEnd moves the given known ids to the end of the list, in their
// given order. Unknown ids are skipped. Returns how many ids were known.
func (p *orderedIDPool) MoveToEnd(ids []TrackID) int {
	start := len(p.list)
	for i := len(ids) - 1; i >= 0; i-- {
		if pos, ok := p.positions[ids[i]]; ok {
			start--
			p.swapPositions(pos, start)
		}
	}
	return len(p.list) - start
}

// Add registers the given ids and returns how many of them were new. After
// the call the last len(ids) entries of the list equal ids.
func (p *orderedIDPool) Add(ids []TrackID) int {
	numKnown := p.MoveToEnd(ids)
	start := len(p.list) - numKnown
	p.list = p.list[:start]
	for i, id := range ids {
		p.list = append(p.list, id)
		p.positions[id] = start + i
		if id > p.maxSeen {
			p.maxSeen = id
		}
	}
	return len(ids) - numKnown
}

// Generate fills ids with maxSeen+1.. and appends them without touching
// existing entries.
func (p *orderedIDPool) Generate(ids []TrackID) {
	for i := range ids {
		p.maxSeen++
		ids[i] = p.maxSeen
		p.positions[ids[i]] = len(p.list)
		p.list = append(p.list, ids[i])
	}
}

// Remove moves the known ids to the end, truncates them away and returns
// how many were known.
func (p *orderedIDPool) Remove(ids []TrackID) int {
	numKnown := p.MoveToEnd(ids)
	p.RemoveLast(numKnown)
	return numKnown
}

// RemoveLast deregisters the given number of ids from the end of the list
func (p *orderedIDPool) RemoveLast(n int) {
	start := len(p.list) - n
	for _, id := range p.list[start:] {
		delete(p.positions, id)
	}
	p.list = p.list[:start]
}
