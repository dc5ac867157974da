package ticket

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/partystacker/internal/model"
)

// Summarize computes sales and attendance figures for e from its tickets.
// Revenue is the sum of the current tier price of each ticket.
func Summarize(e *model.Event, tickets []model.Ticket) model.EventAnalytics {
	a := model.EventAnalytics{EventID: e.ID}
	revenue := decimal.Zero
	for _, t := range tickets {
		a.TotalTicketsSold++
		switch t.Tier {
		case model.TierGeneral:
			a.TierBreakdown.General++
		case model.TierVIP:
			a.TierBreakdown.VIP++
		case model.TierBackstage:
			a.TierBreakdown.Backstage++
		}
		if tier, ok := e.Tiers.Get(t.Tier); ok {
			revenue = revenue.Add(decimal.NewFromFloat(tier.Price))
		}
		if t.CheckedIn {
			a.CheckedInCount++
		}
		if t.RewardMinted {
			a.RewardsMinted++
		}
	}
	a.TotalRevenue = revenue.InexactFloat64()
	return a
}
