package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/Alexander4822/Spielwiese/internal/domain"
)

// roundingEpsilon is the magnitude below which an amount is treated as zero
const roundingEpsilon = 1e-8

var (
	ErrEmptySeries          = errors.New("index series is empty")
	ErrBaselineMonthMissing = errors.New("baseline month missing from index series")
	ErrZeroBaselineIndex    = errors.New("baseline index must not be zero")
	ErrUnknownSegment       = errors.New("unknown real estate segment")
)

// NormalizeAmount maps NaN and ±Inf to 0 and collapses magnitudes below 1e-8 (including -0) to 0
func NormalizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if math.Abs(v) < roundingEpsilon {
		return 0
	}
	return v
}

// SeriesForSegment projects the EPX series onto the category the segment follows
func SeriesForSegment(indices []domain.EpxIndex, segment Segment) ([]IndexPoint, error) {
	pick := func(i domain.EpxIndex) float64 { return i.Apartments }
	switch segment {
	case SegmentApartment:
	case SegmentExistingHouse:
		pick = func(i domain.EpxIndex) float64 { return i.ExistingHomes }
	case SegmentNewHouse:
		pick = func(i domain.EpxIndex) float64 { return i.NewHomes }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSegment, segment)
	}

	out := make([]IndexPoint, len(indices))
	for i, idx := range indices {
		out[i] = IndexPoint{Month: idx.Month, Index: pick(idx)}
	}
	return out, nil
}

// CalculateRealEstateMarketValue returns baselineValue * latest/baseline, where latest is the
// index of the greatest month in series
func CalculateRealEstateMarketValue(re RealEstate, series []IndexPoint) (float64, error) {
	if len(series) == 0 {
		return 0, ErrEmptySeries
	}

	var (
		baseline *IndexPoint
		latest   = series[0]
	)
	for i := range series {
		p := series[i]
		if p.Month == re.BaselineMonth && baseline == nil {
			baseline = &series[i]
		}
		if p.Month > latest.Month {
			latest = p
		}
	}

	if baseline == nil {
		return 0, fmt.Errorf("%w: %s", ErrBaselineMonthMissing, re.BaselineMonth)
	}
	if baseline.Index == 0 {
		return 0, fmt.Errorf("%w: %s", ErrZeroBaselineIndex, re.BaselineMonth)
	}

	return NormalizeAmount(re.BaselineValue * (latest.Index / baseline.Index)), nil
}

// CalculateBoundEquity is the market value minus every loan's remaining principal
func CalculateBoundEquity(marketValue float64, loans []Loan) float64 {
	debt := 0.0
	for _, l := range loans {
		debt += NormalizeAmount(l.RemainingPrincipal)
	}
	return NormalizeAmount(NormalizeAmount(marketValue) - debt)
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += NormalizeAmount(v)
	}
	return NormalizeAmount(total)
}

// CalculateAssetsTotal sums normalized asset amounts
func CalculateAssetsTotal(values ...float64) float64 {
	return sum(values)
}

// CalculateLiabilitiesTotal sums normalized liability amounts
func CalculateLiabilitiesTotal(values ...float64) float64 {
	return sum(values)
}

// CalculateNetWorth is assets minus liabilities
func CalculateNetWorth(assetsTotal, liabilitiesTotal float64) float64 {
	return NormalizeAmount(assetsTotal - liabilitiesTotal)
}

// CalculateAllocationByClass returns each class's percentage of the total.
// When the total is within epsilon of zero every class reports 0.
func CalculateAllocationByClass(assetsByClass map[string]float64) map[string]float64 {
	total := 0.0
	for _, v := range assetsByClass {
		total += NormalizeAmount(v)
	}

	out := make(map[string]float64, len(assetsByClass))
	if math.Abs(total) <= roundingEpsilon {
		for class := range assetsByClass {
			out[class] = 0
		}
		return out
	}

	for class, v := range assetsByClass {
		out[class] = NormalizeAmount(NormalizeAmount(v) / total * 100)
	}
	return out
}

// AllocationWithinTolerance reports whether the percentages add up to 100 within tolerance points
func AllocationWithinTolerance(allocation map[string]float64, tolerance float64) bool {
	total := 0.0
	for _, v := range allocation {
		total += v
	}
	return math.Abs(total-100) <= tolerance
}

// BuildValuation computes the full DTO. Precondition failures of the market value
// calculation are returned unchanged.
func BuildValuation(in Input) (DTO, error) {
	marketValue, err := CalculateRealEstateMarketValue(in.RealEstate, in.Series)
	if err != nil {
		return DTO{}, err
	}

	boundEquity := CalculateBoundEquity(marketValue, in.Loans)
	assetsTotal := CalculateAssetsTotal(boundEquity, in.LiquidAssets, in.Securities, in.OtherAssets)

	liabilities := make([]float64, 0, len(in.Loans)+1)
	for _, l := range in.Loans {
		liabilities = append(liabilities, l.RemainingPrincipal)
	}
	liabilities = append(liabilities, in.OtherLiabilities)
	liabilitiesTotal := CalculateLiabilitiesTotal(liabilities...)

	netWorth := CalculateNetWorth(assetsTotal, liabilitiesTotal)

	allocation := CalculateAllocationByClass(map[string]float64{
		ClassBoundEquity: boundEquity,
		ClassLiquidity:   in.LiquidAssets,
		ClassSecurities:  in.Securities,
		ClassOther:       in.OtherAssets,
	})

	return DTO{
		MarketValue:               marketValue,
		BoundEquity:               boundEquity,
		AssetsTotal:               assetsTotal,
		LiabilitiesTotal:          liabilitiesTotal,
		NetWorth:                  netWorth,
		AllocationByClass:         allocation,
		MarketValueFormatted:      FormatEUR(marketValue),
		BoundEquityFormatted:      FormatEUR(boundEquity),
		AssetsTotalFormatted:      FormatEUR(assetsTotal),
		LiabilitiesTotalFormatted: FormatEUR(liabilitiesTotal),
		NetWorthFormatted:         FormatEUR(netWorth),
	}, nil
}
