package candidate

import "strings"

// Compare orders records with equal similarity scores: most recent filing
// date first, records without a date after dated ones, then publication
// number ascending. Returns a negative number when a precedes b.
func Compare(a, b Record) int {
	da, db := NormalizeDate(a.FilingDate()), NormalizeDate(b.FilingDate())
	switch {
	case da == "" && db != "":
		return 1
	case da != "" && db == "":
		return -1
	case da != db:
		// Descending: the later date precedes.
		return -strings.Compare(da, db)
	}
	return strings.Compare(a.ID(), b.ID())
}

// NormalizeDate maps "2021-03-04", "2021/03/04", "20210304" and "0" (unknown
// in the public dataset) onto a lexically ordered YYYYMMDD form or "".
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return ""
	}
	return strings.NewReplacer("-", "", "/", "").Replace(s)
}
