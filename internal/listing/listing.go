package listing

import (
	"fmt"
	"time"
)

// Source identifies which acquisition strategy produced a raw item
type Source string

const (
	SourceStructured Source = "structured"
	SourceScrape     Source = "scrape"
)

const (
	// DefaultCurrency is used whenever an upstream does not state a currency
	DefaultCurrency = "USD"
	// UnknownSeller is the sentinel seller for items without seller text
	UnknownSeller = "Unknown"
	// PlaceholderTitle is the title of the non-result node on scraped result pages
	PlaceholderTitle = "Shop on eBay"
	// ZeroAmount is the price or shipping cost of a missing or unparsable amount
	ZeroAmount = "0"
)

// Listing is the canonical record of one sold listing
type Listing struct {
	SoldDate         *string `json:"soldDate"`
	Title            string  `json:"title"`
	Price            string  `json:"price"`
	Currency         string  `json:"currency"`
	ShippingCost     string  `json:"shippingCost"`
	ShippingCurrency string  `json:"shippingCurrency"`
	Seller           string  `json:"seller"`
	ListingURL       string  `json:"listingUrl"`
	ItemID           string  `json:"itemId"`
	Condition        string  `json:"condition,omitempty"`
}

// Snapshot is the persisted set of listings produced by one ingestion run
type Snapshot struct {
	LastUpdated   time.Time `json:"lastUpdated"`
	TotalListings int       `json:"totalListings"`
	Listings      []Listing `json:"listings"`
}

// NewSnapshot builds a snapshot whose count matches its listings
func NewSnapshot(listings []Listing, now time.Time) Snapshot {
	if listings == nil {
		listings = []Listing{}
	}
	return Snapshot{
		LastUpdated:   now.UTC(),
		TotalListings: len(listings),
		Listings:      listings,
	}
}

// Validate checks the snapshot invariants
func (s Snapshot) Validate() error {
	if s.TotalListings != len(s.Listings) {
		return fmt.Errorf("snapshot totalListings %d does not match %d listings", s.TotalListings, len(s.Listings))
	}
	if s.LastUpdated.IsZero() {
		return fmt.Errorf("snapshot has no lastUpdated timestamp")
	}
	return nil
}
