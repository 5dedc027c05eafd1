package selection

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
)

// CarryPolicy decides which members of the previous pool are kept on a rebalancing date
type CarryPolicy string

const (
	// CarrySuspended keeps prior holdings that do not trade on the date (they cannot be sold)
	CarrySuspended CarryPolicy = "suspended"
	// CarryActive keeps prior holdings that still trade on the date
	CarryActive CarryPolicy = "active"
)

func ParseCarryPolicy(s string) (CarryPolicy, error) {
	switch CarryPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CarrySuspended:
		return CarrySuspended, nil
	case CarryActive:
		return CarryActive, nil
	default:
		return "", fmt.Errorf("%w: carry policy must be suspended or active (got %q)", contracts.ErrInvalidParams, s)
	}
}

func (p CarryPolicy) volumeFilter() contracts.VolumeFilter {
	if p == CarryActive {
		return contracts.VolumeActive
	}
	return contracts.VolumeSuspended
}

// Params configures SelectPools
type Params struct {
	Market      string // calendar market, "" for the default index
	Start       time.Time
	End         time.Time
	RankBy      contracts.Field
	Range       contracts.Range // open interval on RankBy
	Direction   contracts.Direction
	PoolSize    int
	Interval    int // trading days between rebalancing dates
	CarryPolicy CarryPolicy
}

// Validate checks the parameters and fills defaults for direction and carry policy
func (p *Params) Validate() error {
	if p.PoolSize < 1 {
		return fmt.Errorf("%w: pool size must be >= 1", contracts.ErrInvalidParams)
	}
	if p.Interval < 1 {
		return fmt.Errorf("%w: rebalance interval must be >= 1", contracts.ErrInvalidParams)
	}
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return fmt.Errorf("%w: period %s..%s is empty", contracts.ErrInvalidParams,
			contracts.DateKey(p.Start), contracts.DateKey(p.End))
	}
	if !p.RankBy.Rankable() {
		return fmt.Errorf("%w: cannot rank by %q", contracts.ErrInvalidParams, p.RankBy)
	}
	if err := p.Range.Validate(); err != nil {
		return err
	}
	if p.Direction == "" {
		p.Direction = contracts.Ascending
	}
	if p.CarryPolicy == "" {
		p.CarryPolicy = CarrySuspended
	}
	return nil
}
