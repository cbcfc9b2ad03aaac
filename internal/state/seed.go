package state

import (
	"time"

	"ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
)

// DefaultSeed is written on first boot and whenever DATA_VERSION changes.
// The first five series were raised before investor tracking existed; their
// historical totals live in SeedAmount.
func DefaultSeed(now time.Time) uow.Dataset {
	mk := func(id int64, name, issue, maturity, start, end string, rate, target, seed float64) series.Series {
		return series.Series{
			ID:                    id,
			Name:                  name,
			Status:                series.StatusActive,
			IssueDate:             issue,
			MaturityDate:          maturity,
			SubscriptionStartDate: start,
			SubscriptionEndDate:   end,
			ReleaseDate:           issue,
			FaceValue:             1000,
			MinInvestment:         10000,
			TargetAmount:          target,
			TotalIssueSize:        target,
			InterestRate:          rate,
			InterestFrequency:     "Monthly",
			InterestPaymentDay:    15,
			LockInMonths:          12,
			TenureMonths:          60,
			SeedAmount:            seed,
			CreatedAt:             now,
		}
	}
	return uow.Dataset{
		Series: []series.Series{
			mk(1, "Series A", "01/02/2023", "01/02/2028", "01/01/2023", "31/01/2023", 9.5, 5000000, 4200000),
			mk(2, "Series B", "01/07/2023", "01/07/2028", "01/06/2023", "30/06/2023", 10, 7500000, 6100000),
			mk(3, "Series C", "01/01/2024", "01/01/2029", "01/12/2023", "31/12/2023", 10.5, 10000000, 8800000),
			mk(4, "Series D", "01/06/2024", "01/06/2029", "01/05/2024", "31/05/2024", 11, 10000000, 9300000),
			mk(5, "Series E", "01/11/2024", "01/11/2029", "01/10/2024", "31/10/2024", 11.5, 12000000, 7450000),
		},
		Investors: []investor.Investor{},
	}
}
