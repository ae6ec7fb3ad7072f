// Package pricing computes derived quote totals from itemized cost
// components and percentage rates. All functions are pure.
package pricing

// Input holds the itemized costs and rates a hotel partner submits.
// Absent components default to zero.
type Input struct {
	RoomCost        float64
	FoodCost        float64
	ConferenceCost  float64
	TransportCost   float64
	ExtraCharges    float64
	DiscountOffered float64
	TaxPercent      float64
	ServicePercent  float64
}

// Breakdown holds the computed totals for a quote.
type Breakdown struct {
	Subtotal       float64
	Taxes          float64
	ServiceCharges float64
	BasePrice      float64
	FinalPrice     float64
}

// Calculate derives the quote totals:
//
//	subtotal    = room + food + conference + transport
//	taxes       = subtotal * taxPercent / 100
//	service     = subtotal * servicePercent / 100
//	basePrice   = subtotal + taxes + service + extraCharges
//	finalPrice  = basePrice - discountOffered
//
// A negative final price is reported as-is; callers decide whether to
// reject it before storing.
func Calculate(in Input) Breakdown {
	subtotal := in.RoomCost + in.FoodCost + in.ConferenceCost + in.TransportCost
	taxes := subtotal * in.TaxPercent / 100
	service := subtotal * in.ServicePercent / 100
	basePrice := subtotal + taxes + service + in.ExtraCharges

	return Breakdown{
		Subtotal:       subtotal,
		Taxes:          taxes,
		ServiceCharges: service,
		BasePrice:      basePrice,
		FinalPrice:     basePrice - in.DiscountOffered,
	}
}
