package data

import "github.com/adi-verma/quantscanner/internal/contracts"

// Market-cap boundaries in ₹ crore, following the conventional Indian
// market breakpoints. Instruments below the floor are not scanned at all.
const (
	LargeCapFloorCr = 20000.0
	MidCapFloorCr   = 5000.0
	MinMarketCapCr  = 100.0
)

// TierFor classifies a market cap into the scan tier used by the
// institutional gate
func TierFor(marketCapCr float64) contracts.CapTier {
	switch {
	case marketCapCr >= LargeCapFloorCr:
		return contracts.CapLarge
	case marketCapCr >= MidCapFloorCr:
		return contracts.CapMid
	default:
		return contracts.CapSmall
	}
}
