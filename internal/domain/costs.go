package domain

// CostBreakdown itemizes Indian-market transaction costs for a single
// trade leg. TotalRoundTrip assumes an identical leg on the way out.
type CostBreakdown struct {
	Brokerage      float64
	STT            float64
	Exchange       float64
	GST            float64
	SEBI           float64
	StampDuty      float64
	TotalOneWay    float64
	TotalRoundTrip float64
}
