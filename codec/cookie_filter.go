package codec

import "github.com/coldframe/origin/header"

// CookieFilter stamps one "set-cookie" header per entry in Cookies
// onto the first Headers event it sees. The Response package freezes
// and renders cookie strings before pushing the header snapshot (see
// response.Response.pushHeaders), so by the time an event reaches this
// filter "set-cookie" values are already fully rendered strings —
// this filter's only job is to attach them, keeping cookie *rendering*
// (spec.md §4.4's flag-encoding rules) out of the codec entirely.
type CookieFilter struct {
	PassthroughFilter
	Cookies []string // pre-rendered "name=value; Flag..." strings
}

func (f *CookieFilter) OnHeaders(h header.Map, next func(header.Map) error) error {
	for _, c := range f.Cookies {
		h.Add("set-cookie", c)
	}
	return next(h)
}
