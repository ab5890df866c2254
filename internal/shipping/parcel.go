package shipping

// Parcel scaling. The base box fits two items; every item above that grows
// length by 10% and width/height by 5%, compounding per item, with weight
// added linearly. The growth is strictly monotonic in item count.
const (
	baseLengthCM = 20.0
	baseWidthCM  = 15.0
	baseHeightCM = 10.0
	baseWeightKG = 1.5

	perItemWeightKG  = 0.4
	lengthScale      = 1.10
	widthHeightScale = 1.05
)

// ParcelForItemCount derives parcel dimensions from the cart item count.
func ParcelForItemCount(count int) Parcel {
	if count < 1 {
		count = 1
	}
	p := Parcel{
		LengthCM: baseLengthCM,
		WidthCM:  baseWidthCM,
		HeightCM: baseHeightCM,
		WeightKG: baseWeightKG,
	}
	for i := 2; i < count; i++ {
		p.LengthCM *= lengthScale
		p.WidthCM *= widthHeightScale
		p.HeightCM *= widthHeightScale
	}
	if count > 2 {
		p.WeightKG += float64(count-2) * perItemWeightKG
	}
	return p
}

// CheapestRate returns the index of the minimum-amount rate, the UX default
// pre-selection. It is only a default; the user can pick any quoted rate
// before paying.
func CheapestRate(rates []Rate) int {
	best := -1
	for i, r := range rates {
		if best < 0 || r.AmountCents < rates[best].AmountCents {
			best = i
		}
	}
	return best
}
