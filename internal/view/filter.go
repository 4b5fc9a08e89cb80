package view

// Filter is the single active URL filter. The zero value is unfiltered.
type Filter struct {
	url    string
	active bool
}

// Set filters on url. Matching is exact and case-sensitive.
func (f *Filter) Set(url string) {
	f.url = url
	f.active = true
}

// Clear returns to the unfiltered state.
func (f *Filter) Clear() {
	f.url = ""
	f.active = false
}

// Value returns the filtered url and whether a filter is active.
func (f Filter) Value() (string, bool) {
	return f.url, f.active
}

// Active reports whether a filter is set.
func (f Filter) Active() bool {
	return f.active
}

// Matches reports whether a request with url belongs to the visible set.
func (f Filter) Matches(url string) bool {
	return !f.active || f.url == url
}

// String implements fmt.Stringer
func (f Filter) String() string {
	if !f.active {
		return "unfiltered"
	}
	return "url=" + f.url
}
