// Package gazetteer resolves place names against a GeoNames dump.
//
// The input is the tab-separated allCountries.txt layout. Admin codes on
// each row are replaced by the names of the matching ADM1..ADM4 rows, so a
// resolved Place carries a readable administrative path:
//
//	g, err := gazetteer.LoadFile("NL.txt")
//	place, ok := g.Resolve("Utrecht")
//
// An unknown name is not an error; Resolve reports false.
package gazetteer
