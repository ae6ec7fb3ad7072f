package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

func testHotel() *models.Hotel {
	return &models.Hotel{
		ID:            uuid.New(),
		Name:          "Oceanview Grand",
		City:          "Colombo",
		StarRating:    4,
		Rating:        4.6,
		PricePerNight: 180,
		Amenities:     models.StringArray{"Free WiFi", "Pool", "Restaurant"},
		LocationTypes: models.StringArray{"Beach", "City Center"},
		RoomTypes:     models.RoomInventory{Single: 10, Double: 20, Triple: 5, Quad: 2},
		MealOptions:   models.StringArray{"Breakfast", "Dinner"},
		AVEquipment:   models.StringArray{"Projector", "Microphone"},
	}
}

func TestScore_CityMatch(t *testing.T) {
	engine := NewScoringEngine()
	hotel := testHotel()

	matched := engine.Score(hotel, &models.TripRequirements{Destination: "Colombo", Travelers: 10})
	elsewhere := engine.Score(hotel, &models.TripRequirements{Destination: "Kandy", Travelers: 10})

	// City match is worth 30 more than the consolation score.
	assert.Equal(t, 30.0, matched.Score-elsewhere.Score)
	assert.Contains(t, matched.Reasons, "Located in Colombo")
}

func TestScore_PreferredCitiesSubstring(t *testing.T) {
	engine := NewScoringEngine()
	hotel := testHotel()
	hotel.City = "Colombo 03"

	result := engine.Score(hotel, &models.TripRequirements{
		PreferredCities: "galle, colombo 03",
		Travelers:       5,
	})
	assert.Contains(t, result.Reasons, "Located in Colombo 03")
}

func TestScore_RatingTiers(t *testing.T) {
	engine := NewScoringEngine()
	req := &models.TripRequirements{Destination: "Colombo", Travelers: 4}

	tests := []struct {
		name   string
		rating float64
		delta  float64
	}{
		{"top tier", 4.7, 30},
		{"boundary top tier", 4.5, 30},
		{"second tier", 4.2, 20},
		{"third tier", 3.3, 10},
		{"below threshold", 2.5, 0},
	}

	base := testHotel()
	base.Rating = 0
	baseline := engine.Score(base, req).Score

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hotel := testHotel()
			hotel.Rating = tt.rating
			result := engine.Score(hotel, req)
			assert.Equal(t, tt.delta, result.Score-baseline)
		})
	}
}

func TestScore_PriceBands(t *testing.T) {
	engine := NewScoringEngine()
	req := &models.TripRequirements{Destination: "Colombo", Travelers: 4}

	cheap := testHotel()
	cheap.PricePerNight = 120
	expensive := testHotel()
	expensive.PricePerNight = 900
	unpriced := testHotel()
	unpriced.PricePerNight = 0

	cheapScore := engine.Score(cheap, req).Score
	expensiveScore := engine.Score(expensive, req).Score
	unpricedScore := engine.Score(unpriced, req).Score

	assert.Equal(t, 5.0, cheapScore-expensiveScore)
	assert.Equal(t, 20.0, cheapScore-unpricedScore)
}

func TestScore_StarCategories(t *testing.T) {
	engine := NewScoringEngine()
	hotel := testHotel()
	hotel.StarRating = 4

	exact := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, StarCategories: []int{4, 5},
	})
	partial := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, StarCategories: []int{5},
	})
	none := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, StarCategories: []int{3},
	})

	assert.Equal(t, 10.0, exact.Score-partial.Score)
	assert.Equal(t, 10.0, partial.Score-none.Score)
	assert.Contains(t, exact.Reasons, "Matches preferred 4-star category")
}

func TestScore_StarCategoriesPartialAnyTierBelow(t *testing.T) {
	engine := NewScoringEngine()
	hotel := testHotel()
	hotel.StarRating = 2

	// Partial credit applies whenever the hotel sits at or below the
	// highest preferred category, however many tiers apart.
	preferred := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, StarCategories: []int{5},
	})
	baseline := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4,
	})
	above := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, StarCategories: []int{1},
	})

	assert.Equal(t, 10.0, preferred.Score-baseline.Score)
	assert.Equal(t, baseline.Score, above.Score)
}

func TestScore_RoomInventory(t *testing.T) {
	engine := NewScoringEngine()
	req := &models.TripRequirements{
		Destination: "Colombo",
		Travelers:   20,
		SingleRooms: 5,
		DoubleRooms: 5,
	}

	full := testHotel()
	capacityOnly := testHotel()
	capacityOnly.RoomTypes = models.RoomInventory{Single: 0, Double: 30}
	insufficient := testHotel()
	insufficient.RoomTypes = models.RoomInventory{Single: 1, Double: 1}

	fullScore := engine.Score(full, req)
	capScore := engine.Score(capacityOnly, req)
	insufficientScore := engine.Score(insufficient, req)

	assert.Equal(t, 12.0, fullScore.Score-capScore.Score)
	assert.Contains(t, fullScore.Reasons, "Has all required room types available")
	assert.Contains(t, capScore.Reasons, "Sufficient total room capacity")
	assert.Equal(t, 8.0, capScore.Score-insufficientScore.Score)
}

func TestScore_EventHall(t *testing.T) {
	engine := NewScoringEngine()

	withHall := testHotel()
	withHall.EventHallAvailable = true
	withHall.HallCapacity = 200
	withoutHall := testHotel()

	required := &models.TripRequirements{Destination: "Colombo", Travelers: 50, RequiresEventHall: true}
	notRequired := &models.TripRequirements{Destination: "Colombo", Travelers: 50}

	// Required and present with capacity: +15 +10. Required and missing: -10.
	assert.Equal(t, 35.0, engine.Score(withHall, required).Score-engine.Score(withoutHall, required).Score)
	// Not required but present: +5.
	assert.Equal(t, 5.0, engine.Score(withHall, notRequired).Score-engine.Score(withoutHall, notRequired).Score)

	smallHall := testHotel()
	smallHall.EventHallAvailable = true
	smallHall.HallCapacity = 20
	result := engine.Score(smallHall, required)
	assert.Contains(t, result.Reasons, "Event hall available")
}

func TestScore_MealsCapped(t *testing.T) {
	engine := NewScoringEngine()
	hotel := testHotel()
	hotel.MealOptions = models.StringArray{"Breakfast", "Lunch", "Dinner"}

	one := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, Meals: []string{"Breakfast"},
	})
	three := engine.Score(hotel, &models.TripRequirements{
		Destination: "Colombo", Travelers: 4, Meals: []string{"Breakfast", "Lunch", "Dinner"},
	})

	// Capped at 10: three matches only earn 5 more than one.
	assert.Equal(t, 5.0, three.Score-one.Score)
}

func TestScore_FloorAndFallbackReason(t *testing.T) {
	engine := NewScoringEngine()
	hotel := &models.Hotel{ID: uuid.New(), Name: "Empty"}
	req := &models.TripRequirements{Destination: "Nowhere", Travelers: 2, RequiresEventHall: true}

	result := engine.Score(hotel, req)
	assert.Equal(t, 5.0, result.Score)
	assert.Equal(t, []string{"Available"}, result.Reasons)
}

func TestScore_NeverBelowFloor(t *testing.T) {
	engine := NewScoringEngine()
	// Worst case: no city, no rating, no price, hall required but absent.
	hotel := &models.Hotel{ID: uuid.New(), City: ""}
	result := engine.Score(hotel, &models.TripRequirements{RequiresEventHall: true})
	assert.GreaterOrEqual(t, result.Score, 5.0)
}
