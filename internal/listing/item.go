package listing

import (
	"time"

	"sjsage522/soldlistings/helpers"
)

// RawItem is one upstream item as acquired by a strategy, before normalization.
// Each upstream shape implements Extract to produce the canonical record.
type RawItem interface {
	Source() Source
	Extract(acquiredAt time.Time) Listing
}

// Amount is a pre-typed money value in the structured search envelope
type Amount struct {
	CurrencyID string `json:"@currencyId"`
	Value      string `json:"__value__"`
}

// StructuredItem is one item of the structured search envelope.
// Every field arrives wrapped in a single-element array.
type StructuredItem struct {
	ItemID        []string `json:"itemId"`
	Title         []string `json:"title"`
	ViewItemURL   []string `json:"viewItemURL"`
	SellingStatus []struct {
		CurrentPrice []Amount `json:"currentPrice"`
		SellingState []string `json:"sellingState"`
	} `json:"sellingStatus"`
	ShippingInfo []struct {
		ShippingServiceCost []Amount `json:"shippingServiceCost"`
	} `json:"shippingInfo"`
	SellerInfo []struct {
		SellerUserName []string `json:"sellerUserName"`
	} `json:"sellerInfo"`
	ListingInfo []struct {
		EndTime []string `json:"endTime"`
	} `json:"listingInfo"`
	Condition []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
}

// Source implements RawItem
func (StructuredItem) Source() Source { return SourceStructured }

// Extract implements RawItem. A missing end time stays null.
func (it StructuredItem) Extract(_ time.Time) Listing {
	var price, shipping Amount
	if len(it.SellingStatus) > 0 {
		price = firstAmount(it.SellingStatus[0].CurrentPrice)
	}
	if len(it.ShippingInfo) > 0 {
		shipping = firstAmount(it.ShippingInfo[0].ShippingServiceCost)
	}

	l := Listing{
		Title:      first(it.Title),
		ListingURL: first(it.ViewItemURL),
		Seller:     UnknownSeller,
	}
	l.Price, l.Currency = ExtractAmount(price.Value, price.CurrencyID)
	l.ShippingCost, l.ShippingCurrency = ExtractAmount(shipping.Value, shipping.CurrencyID)

	// usernames are taken verbatim; only scraped seller text carries a label
	if len(it.SellerInfo) > 0 {
		if name := first(it.SellerInfo[0].SellerUserName); name != "" {
			l.Seller = name
		}
	}
	if len(it.ListingInfo) > 0 {
		if date, ok := ExtractDate(first(it.ListingInfo[0].EndTime)); ok {
			l.SoldDate = &date
		}
	}
	if len(it.Condition) > 0 {
		l.Condition = first(it.Condition[0].ConditionDisplayName)
	}

	l.ItemID = first(it.ItemID)
	if l.ItemID == "" {
		l.ItemID = ExtractItemID(l.ListingURL)
	}
	return l
}

// ScrapedItem holds the text found under each role of one result node on a rendered page
type ScrapedItem struct {
	Title     string
	PriceText string
	Shipping  string
	Seller    string
	EndTime   string
	Tag       string
	Status    string
	URL       string
	Condition string
}

// Source implements RawItem
func (ScrapedItem) Source() Source { return SourceScrape }

// Extract implements RawItem. A missing date falls back to the acquisition time.
func (it ScrapedItem) Extract(acquiredAt time.Time) Listing {
	l := Listing{
		Title:      helpers.FirstNonEmpty(it.Title),
		Seller:     ExtractSeller(it.Seller),
		ListingURL: helpers.FirstNonEmpty(it.URL),
		Condition:  helpers.FirstNonEmpty(it.Condition),
	}
	l.Price, l.Currency = ExtractPrice(it.PriceText)
	l.ShippingCost, l.ShippingCurrency = ExtractShipping(it.Shipping)
	l.ItemID = ExtractItemID(l.ListingURL)

	date, ok := ExtractDate(it.EndTime, it.Tag, it.Status)
	if !ok {
		date = acquiredAt.UTC().Format(time.RFC3339)
	}
	l.SoldDate = &date
	return l
}

func first(values []string) string {
	return helpers.FirstNonEmpty(values...)
}

func firstAmount(amounts []Amount) Amount {
	if len(amounts) == 0 {
		return Amount{}
	}
	return amounts[0]
}
