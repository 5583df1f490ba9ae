package response

import "bytes"

// CookieFlag is one rendered flag attached to a cookie. A bare flag
// (e.g. "Secure", "HttpOnly") has an empty Key and renders as
// "; Value"; a keyed flag (e.g. "SameSite=Lax") renders as
// "; Key=Value". No value-side escaping is performed — reproduced
// verbatim from the observed behavior of the teacher's cookie
// serialization (cli/cookie.go's String method), which likewise
// writes attribute values unescaped.
type CookieFlag struct {
	Key   string
	Value string
}

// Cookie is one entry in a Response's cookie table: a name, a value,
// and an ordered list of flags rendered in insertion order.
type Cookie struct {
	Name  string
	Value string
	Flags []CookieFlag
}

// render produces the "set-cookie" header value, per spec.md §4.4:
// "name=value"; then for each flag, integer-keyed (bare) flags render
// as "; value", string-keyed as "; key=value".
//
// Ground: cli/cookie.go's String() — same append-to-buffer shape,
// generalized from a fixed field struct (Path/Domain/Expires/...) to
// an arbitrary ordered flag list, matching spec.md's
// `(value, flags)` model rather than the teacher's fixed attribute set.
func (c Cookie) render() string {
	var b bytes.Buffer
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	for _, f := range c.Flags {
		b.WriteString("; ")
		if f.Key == "" {
			b.WriteString(f.Value)
			continue
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}
