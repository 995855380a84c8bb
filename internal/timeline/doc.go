// Package timeline turns fetched purchase and item records into the feeds the
// timeline views show: anonymous monthly names, filters, and a merged,
// numbered, newest-first list of purchases and item lifecycle markers.
//
// Everything here is pure and synchronous. Callers fetch records first and
// pass them in; nothing in this package performs I/O or keeps state between
// calls.
package timeline
