// Package scraper extracts album ratings from live site pages.
//
// Extraction is two navigations: an album search whose first result is taken
// as the match, then the album page itself for the average rating, vote
// count, genres, and release date. A page that loads but lacks an expected
// element is a ParseError, never a "not found"; only an empty results page
// means the album has no listing.
package scraper
