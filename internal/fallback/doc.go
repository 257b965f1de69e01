// Package fallback resolves titles through secondary catalogs when the
// primary search comes back empty. Sources only translate a title into the
// primary catalog ids they link to; the records themselves are always fetched
// from the primary catalog so scoring treats them like any other result.
package fallback
