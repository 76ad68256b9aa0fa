package inventory

import (
	"fmt"
	"strings"
)

// Offer is one dealer listing flattened into the fields the app stores.
type Offer struct {
	DealerName      string
	Phone           string
	Address         string
	VIN             string
	MSRP            float64
	DiscountedPrice float64
	Mileage         int
	MPG             float64
	Distance        float64
	ImageURLs       []string
	Link            string
}

// ToOffer maps a raw listing. Listings missing a dealer name, a dealer
// phone or a positive price are rejected.
func ToOffer(l Listing) (Offer, error) {
	if l.Dealer == nil {
		return Offer{}, fmt.Errorf("listing %s: dealer missing", l.ID)
	}
	name := strings.TrimSpace(l.Dealer.Name)
	phone := strings.TrimSpace(l.Dealer.Phone)
	if name == "" {
		return Offer{}, fmt.Errorf("listing %s: dealer name missing", l.ID)
	}
	if phone == "" {
		return Offer{}, fmt.Errorf("listing %s: dealer phone missing", l.ID)
	}

	msrp := l.MSRP
	if msrp <= 0 {
		msrp = l.ListPrice
	}
	price := l.CurrentPrice
	if price <= 0 {
		price = msrp
	}
	if price <= 0 {
		return Offer{}, fmt.Errorf("listing %s: no price", l.ID)
	}
	if msrp <= 0 {
		msrp = price
	}

	mpg := l.MpgCombined
	if mpg <= 0 && l.MpgCity > 0 && l.MpgHighway > 0 {
		mpg = (l.MpgCity + l.MpgHighway) / 2
	}

	images := l.Images.Large
	if len(images) == 0 && l.Images.FirstPhoto.Large != "" {
		images = []string{l.Images.FirstPhoto.Large}
	}

	return Offer{
		DealerName:      name,
		Phone:           phone,
		Address:         formatAddress(l.Dealer),
		VIN:             l.VIN,
		MSRP:            msrp,
		DiscountedPrice: price,
		Mileage:         l.Mileage,
		MPG:             mpg,
		Distance:        l.DistanceToDealer,
		ImageURLs:       images,
		Link:            l.VdpURL,
	}, nil
}

// ToOffers maps every listing and returns the rejected ones' errors alongside.
func ToOffers(listings []Listing) ([]Offer, []error) {
	offers := make([]Offer, 0, len(listings))
	var rejected []error
	for _, l := range listings {
		o, err := ToOffer(l)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		offers = append(offers, o)
	}
	return offers, rejected
}

func formatAddress(d *Dealer) string {
	var parts []string
	if s := strings.TrimSpace(d.Address); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(d.City); s != "" {
		parts = append(parts, s)
	}
	stateZip := strings.TrimSpace(strings.TrimSpace(d.State) + " " + strings.TrimSpace(d.Zip))
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}
