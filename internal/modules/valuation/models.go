// Package valuation computes index-linked real-estate values, net worth and allocation.
// Every function is pure; amounts are normalized before they are returned.
package valuation

// Segment selects which EPX category a property follows
type Segment string

const (
	SegmentApartment     Segment = "apartment"
	SegmentExistingHouse Segment = "existing_house"
	SegmentNewHouse      Segment = "new_house"
)

// IndexPoint is one month of a single index category
type IndexPoint struct {
	Month string  `json:"month"`
	Index float64 `json:"index"`
}

// RealEstate is a property valued relative to its baseline month
type RealEstate struct {
	Name          string  `json:"name,omitempty"`
	Segment       Segment `json:"segment,omitempty"`
	BaselineValue float64 `json:"baselineValue"`
	BaselineMonth string  `json:"baselineMonth"`
}

// Loan is an outstanding liability secured on a property
type Loan struct {
	Name               string  `json:"name,omitempty"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
}

// Input collects everything BuildValuation needs
type Input struct {
	RealEstate       RealEstate   `json:"realEstate"`
	Series           []IndexPoint `json:"series"`
	Loans            []Loan       `json:"loans"`
	LiquidAssets     float64      `json:"liquidAssets"`
	Securities       float64      `json:"securities"`
	OtherAssets      float64      `json:"otherAssets"`
	OtherLiabilities float64      `json:"otherLiabilities"`
}

// Allocation class keys used by BuildValuation
const (
	ClassBoundEquity = "boundEquity"
	ClassLiquidity   = "liquidity"
	ClassSecurities  = "securities"
	ClassOther       = "other"
)

// DTO is the computed valuation with raw and de-DE formatted amounts
type DTO struct {
	MarketValue               float64            `json:"marketValue"`
	BoundEquity               float64            `json:"boundEquity"`
	AssetsTotal               float64            `json:"assetsTotal"`
	LiabilitiesTotal          float64            `json:"liabilitiesTotal"`
	NetWorth                  float64            `json:"netWorth"`
	AllocationByClass         map[string]float64 `json:"allocationByClass"`
	MarketValueFormatted      string             `json:"marketValueFormatted"`
	BoundEquityFormatted      string             `json:"boundEquityFormatted"`
	AssetsTotalFormatted      string             `json:"assetsTotalFormatted"`
	LiabilitiesTotalFormatted string             `json:"liabilitiesTotalFormatted"`
	NetWorthFormatted         string             `json:"netWorthFormatted"`
}
