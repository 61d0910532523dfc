package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-apotek/internal/ledger"
)

// Key identifies the rows that form one bill. Every aggregation path derives
// it through a KeyFunc so the dedup boundary is computed in one place.
type Key struct {
	CustomerName  string
	CustomerPhone string
	Period        string
}

// KeyFunc maps a ledger row to its bill key.
type KeyFunc func(ledger.Row) Key

// Grouping names how the bill timestamp contributes to the key.
type Grouping string

const (
	// GroupByDay truncates the bill timestamp to its calendar day.
	GroupByDay Grouping = "day"
	// GroupByTimestamp uses the exact bill timestamp.
	GroupByTimestamp Grouping = "timestamp"
)

// ParseGrouping accepts "day" (the default for an empty value) or "timestamp".
func ParseGrouping(v string) (Grouping, error) {
	switch Grouping(strings.ToLower(strings.TrimSpace(v))) {
	case "", GroupByDay:
		return GroupByDay, nil
	case GroupByTimestamp:
		return GroupByTimestamp, nil
	}
	return "", fmt.Errorf("unknown bill grouping %q", v)
}

// KeyFunc returns the key function for g, evaluating days in loc.
func (g Grouping) KeyFunc(loc *time.Location) KeyFunc {
	if g == GroupByTimestamp {
		return TimestampKey
	}
	return DayKey(loc)
}

// DayKey groups by customer name, phone and calendar day in loc.
func DayKey(loc *time.Location) KeyFunc {
	if loc == nil {
		loc = time.UTC
	}
	return func(r ledger.Row) Key {
		return Key{
			CustomerName:  r.CustomerName,
			CustomerPhone: r.CustomerPhone,
			Period:        r.BilledAt.In(loc).Format(time.DateOnly),
		}
	}
}

// TimestampKey groups by customer name, phone and the exact bill timestamp.
func TimestampKey(r ledger.Row) Key {
	return Key{
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Period:        r.BilledAt.UTC().Format(time.RFC3339Nano),
	}
}
