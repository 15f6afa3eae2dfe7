package scheduling

import (
	"context"
	"log"
	"math"
)

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// suggestVenue picks the active venue closest to the midpoint between the two
// users. Missing coordinates fall back to the first active venue; no venue at
// all leaves the booking without one, which blocks confirmation until staff
// assign it.
func (s *service) suggestVenue(ctx context.Context, tx Repository, user1ID, user2ID int64) *int64 {
	venues, err := tx.GetActiveVenues(ctx)
	if err != nil || len(venues) == 0 {
		if err != nil {
			log.Printf("scheduling: venue lookup failed: %v", err)
		}
		return nil
	}

	u1, err1 := s.users.FindUser(ctx, user1ID)
	u2, err2 := s.users.FindUser(ctx, user2ID)
	if err1 != nil || err2 != nil ||
		u1.Latitude == nil || u1.Longitude == nil ||
		u2.Latitude == nil || u2.Longitude == nil {
		return &venues[0].ID
	}

	midLat := (*u1.Latitude + *u2.Latitude) / 2
	midLon := (*u1.Longitude + *u2.Longitude) / 2

	best := &venues[0]
	bestDist := haversineKm(midLat, midLon, best.Latitude, best.Longitude)
	for i := 1; i < len(venues); i++ {
		if d := haversineKm(midLat, midLon, venues[i].Latitude, venues[i].Longitude); d < bestDist {
			best = &venues[i]
			bestDist = d
		}
	}
	return &best.ID
}

// SeedVenues loads the starter venue list on an empty table
func (s *service) SeedVenues(ctx context.Context) error {
	count, err := s.repo.CountVenues(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := []Venue{
		{Name: "The Coffee House - Nguyen Hue", Address: "86-88 Nguyen Hue, District 1, Ho Chi Minh City", Latitude: 10.7743, Longitude: 106.7038, Active: true},
		{Name: "Cong Caphe - Hoan Kiem", Address: "27 Nha Tho, Hoan Kiem, Hanoi", Latitude: 21.0288, Longitude: 105.8491, Active: true},
		{Name: "Highlands Coffee - Landmark 81", Address: "720A Dien Bien Phu, Binh Thanh, Ho Chi Minh City", Latitude: 10.7950, Longitude: 106.7218, Active: true},
		{Name: "Tranquil Books & Coffee", Address: "5 Nguyen Quang Bich, Hoan Kiem, Hanoi", Latitude: 21.0332, Longitude: 105.8466, Active: true},
		{Name: "Danang Souvenirs & Cafe", Address: "34 Bach Dang, Hai Chau, Da Nang", Latitude: 16.0712, Longitude: 108.2240, Active: true},
	}
	for i := range seeds {
		if err := s.repo.CreateVenue(ctx, &seeds[i]); err != nil {
			return err
		}
	}

	log.Printf("scheduling: seeded %d venues", len(seeds))
	return nil
}
