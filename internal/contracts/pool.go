package contracts

import "time"

// Pools maps each rebalancing date to the ordered codes held for the following period
type Pools struct {
	dates   []time.Time
	members map[string][]string
}

func NewPools() *Pools {
	return &Pools{members: make(map[string][]string)}
}

// Add records the pool of date. Dates must be added in ascending order.
func (p *Pools) Add(date time.Time, codes []string) {
	key := DateKey(date)
	if _, ok := p.members[key]; !ok {
		p.dates = append(p.dates, Day(date))
	}
	cp := make([]string, len(codes))
	copy(cp, codes)
	p.members[key] = cp
}

// Get returns the pool of date, nil when date is not a rebalancing date
func (p *Pools) Get(date time.Time) []string {
	return p.members[DateKey(date)]
}

// Dates returns the rebalancing dates in order
func (p *Pools) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

func (p *Pools) Len() int {
	return len(p.dates)
}

// PoolEntry is the serialised form of one rebalancing
type PoolEntry struct {
	Date  string   `json:"date"`
	Codes []string `json:"codes"`
}

// Entries returns the pools in date order
func (p *Pools) Entries() []PoolEntry {
	out := make([]PoolEntry, 0, len(p.dates))
	for _, d := range p.dates {
		out = append(out, PoolEntry{Date: DateKey(d), Codes: p.Get(d)})
	}
	return out
}
