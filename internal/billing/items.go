package billing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/ledger"
)

// ItemSales is the row-level total for one item name.
type ItemSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"totalSold"`
	Revenue  decimal.Decimal `json:"totalRevenue"`
	Lines    int             `json:"lines"`
}

// ItemTotals aggregates rows by item name, crediting each row's own line
// amount. Items are ranked by quantity; ties keep first-appearance order by
// ascending row id.
func ItemTotals(rows []ledger.Row) []ItemSales {
	ordered := make([]ledger.Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	index := make(map[string]int)
	var out []ItemSales
	for _, r := range ordered {
		i, ok := index[r.ItemName]
		if !ok {
			i = len(out)
			index[r.ItemName] = i
			out = append(out, ItemSales{Name: r.ItemName, Revenue: decimal.Zero})
		}
		out[i].Quantity += r.Quantity
		out[i].Revenue = out[i].Revenue.Add(r.LineFinal())
		out[i].Lines++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out
}
