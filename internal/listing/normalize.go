package listing

import "time"

// Normalize converts raw items into canonical listings, in upstream order.
//
// An item is dropped when its title is empty or the result-page placeholder.
// Scraped items are also dropped when their price is exactly "0": on the scrape
// path that means the price text did not parse, while the structured source may
// report real zero-value listings.
func Normalize(items []RawItem, acquiredAt time.Time) []Listing {
	listings := make([]Listing, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		l := item.Extract(acquiredAt)
		if !keep(item.Source(), l) {
			continue
		}
		listings = append(listings, l)
	}
	return listings
}

func keep(source Source, l Listing) bool {
	if l.Title == "" || l.Title == PlaceholderTitle {
		return false
	}
	if source == SourceScrape && l.Price == ZeroAmount {
		return false
	}
	return true
}
