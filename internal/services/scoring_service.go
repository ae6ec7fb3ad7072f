package services

import (
	"fmt"
	"strings"

	"github.com/tripdesk/marketplace-backend/internal/models"
)

// Scoring weights. Points are additive and each rule is independent; the
// event hall rule is the only one allowed to subtract. Thresholds encode a
// mild budget-conscious bias and are tunable policy, not business rules.
const (
	cityMatchPoints        = 40.0
	cityConsolationPoints  = 10.0
	ratingTopPoints        = 30.0
	ratingSecondPoints     = 20.0
	ratingThirdPoints      = 10.0
	priceLowPoints         = 20.0
	priceHighPoints        = 15.0
	priceLowThreshold      = 500.0
	amenityBonusPoints     = 10.0
	starExactPoints        = 20.0
	starPartialPoints      = 10.0
	locationTypePointsEach = 10.0
	locationTypeCap        = 20.0
	roomsFullPoints        = 20.0
	roomsCapacityPoints    = 8.0
	hallRequiredPoints     = 15.0
	hallCapacityBonus      = 10.0
	hallMissingPenalty     = 10.0
	hallUnrequestedBonus   = 5.0
	mealPointsEach         = 5.0
	mealCap                = 10.0
	avMatchPoints          = 5.0

	// No hotel scores below this floor: a malformed catalog record must
	// degrade, not abort a ranking pass, and downstream sorts stay stable.
	minScore = 5.0
)

// desiredAmenities is the fixed reference set the amenity-overlap rule
// counts against.
var desiredAmenities = []string{"WiFi", "Restaurant", "Pool", "Spa", "Gym", "AC"}

// HotelScore is a hotel with the score and reasons it earned against one
// requirement set.
type HotelScore struct {
	Hotel   models.Hotel `json:"hotel"`
	Score   float64      `json:"score"`
	Reasons []string     `json:"reasons"`
}

// ScoringEngine ranks hotels against trip requirements with a weighted rule
// set. Pure: no I/O, no side effects, and it never fails — missing or odd
// hotel fields degrade toward the floor score instead.
type ScoringEngine struct{}

// NewScoringEngine creates a new ScoringEngine
func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// Score computes a hotel's match score for the given requirements.
// The result is always >= minScore.
func (e *ScoringEngine) Score(hotel *models.Hotel, req *models.TripRequirements) HotelScore {
	score := 0.0
	var reasons []string

	// 1. Location matching. Soft: hotels outside the preferred cities keep
	// a consolation score rather than being excluded.
	cities := req.PreferredCityList()
	if dest := strings.ToLower(strings.TrimSpace(req.Destination)); dest != "" {
		cities = append(cities, dest)
	}
	hotelCity := strings.ToLower(hotel.City)
	cityMatched := false
	for _, city := range cities {
		if strings.Contains(hotelCity, city) || strings.Contains(city, hotelCity) {
			cityMatched = true
			break
		}
	}
	if cityMatched && hotelCity != "" {
		score += cityMatchPoints
		reasons = append(reasons, fmt.Sprintf("Located in %s", hotel.City))
	} else {
		score += cityConsolationPoints
	}

	// 2. Rating tiers
	switch {
	case hotel.Rating >= 4.5:
		score += ratingTopPoints
		reasons = append(reasons, fmt.Sprintf("Highly rated: %.1f", hotel.Rating))
	case hotel.Rating >= 4.0:
		score += ratingSecondPoints
		reasons = append(reasons, fmt.Sprintf("Good rating: %.1f", hotel.Rating))
	case hotel.Rating >= 3.0:
		score += ratingThirdPoints
		reasons = append(reasons, fmt.Sprintf("Rated: %.1f", hotel.Rating))
	}

	// 3. Price banding
	if hotel.PricePerNight > 0 && hotel.PricePerNight < priceLowThreshold {
		score += priceLowPoints
	} else if hotel.PricePerNight >= priceLowThreshold {
		score += priceHighPoints
	}

	// 4. Amenity overlap, capped
	var matchedAmenities []string
	for _, amenity := range hotel.Amenities {
		for _, desired := range desiredAmenities {
			if strings.Contains(amenity, desired) {
				matchedAmenities = append(matchedAmenities, amenity)
				break
			}
		}
	}
	if len(matchedAmenities) > 0 {
		score += amenityBonusPoints
		limit := len(matchedAmenities)
		if limit > 2 {
			limit = 2
		}
		reasons = append(reasons, "Amenities: "+strings.Join(matchedAmenities[:limit], ", "))
	}

	// 5. Star category preference
	if len(req.StarCategories) > 0 {
		exact := false
		maxPreferred := 0
		for _, star := range req.StarCategories {
			if star == hotel.StarRating {
				exact = true
			}
			if star > maxPreferred {
				maxPreferred = star
			}
		}
		if exact {
			score += starExactPoints
			reasons = append(reasons, fmt.Sprintf("Matches preferred %d-star category", hotel.StarRating))
		} else if maxPreferred >= hotel.StarRating {
			score += starPartialPoints
		}
	}

	// 6. Location type preference, capped
	locationPoints := 0.0
	for _, pref := range req.LocationTypes {
		for _, locType := range hotel.LocationTypes {
			if strings.EqualFold(strings.TrimSpace(pref), strings.TrimSpace(locType)) {
				locationPoints += locationTypePointsEach
				break
			}
		}
	}
	if locationPoints > locationTypeCap {
		locationPoints = locationTypeCap
	}
	if locationPoints > 0 {
		score += locationPoints
		reasons = append(reasons, "Matches location preference: "+strings.Join(req.LocationTypes, ", "))
	}

	// 7. Room inventory sufficiency
	needed := req.RequiredRooms()
	if needed.Total() > 0 {
		if hotel.RoomTypes.Single >= needed.Single &&
			hotel.RoomTypes.Double >= needed.Double &&
			hotel.RoomTypes.Triple >= needed.Triple &&
			hotel.RoomTypes.Quad >= needed.Quad {
			score += roomsFullPoints
			reasons = append(reasons, "Has all required room types available")
		} else if hotel.RoomTypes.Total() >= needed.Total() {
			score += roomsCapacityPoints
			reasons = append(reasons, "Sufficient total room capacity")
		}
	}

	// 8. Event hall. The one near-hard constraint: required but missing
	// pushes the score down without excluding the candidate outright.
	if req.RequiresEventHall {
		if hotel.EventHallAvailable {
			score += hallRequiredPoints
			if hotel.HallCapacity >= req.Travelers {
				score += hallCapacityBonus
				reasons = append(reasons, fmt.Sprintf("Event hall capacity: %d guests", hotel.HallCapacity))
			} else {
				reasons = append(reasons, "Event hall available")
			}
		} else {
			score -= hallMissingPenalty
		}
	} else if hotel.EventHallAvailable {
		score += hallUnrequestedBonus
	}

	// 9. Meal options, capped
	mealPoints := 0.0
	var matchedMeals []string
	for _, meal := range req.Meals {
		for _, option := range hotel.MealOptions {
			if strings.EqualFold(strings.TrimSpace(meal), strings.TrimSpace(option)) {
				mealPoints += mealPointsEach
				matchedMeals = append(matchedMeals, meal)
				break
			}
		}
	}
	if mealPoints > mealCap {
		mealPoints = mealCap
	}
	if mealPoints > 0 {
		score += mealPoints
		reasons = append(reasons, "Offers meal options: "+strings.Join(matchedMeals, ", "))
	}

	// 10. Audio-visual equipment
	avMatched := false
	for _, need := range req.AVRequirements {
		for _, equip := range hotel.AVEquipment {
			if strings.Contains(strings.ToLower(equip), strings.ToLower(strings.TrimSpace(need))) {
				avMatched = true
				break
			}
		}
		if avMatched {
			break
		}
	}
	if avMatched {
		score += avMatchPoints
		reasons = append(reasons, "Has required A/V equipment")
	}

	if score < minScore {
		score = minScore
		if len(reasons) == 0 {
			reasons = append(reasons, "Available")
		}
	}

	return HotelScore{Hotel: *hotel, Score: score, Reasons: reasons}
}
