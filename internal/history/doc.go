// Package history stores a continuously growing loudness measurement and
// answers range queries at a resolution matched to the requested window.
//
// Every AddPoint call appends one Sample, timestamped by its index divided
// by the update rate. Recent samples stay in a fixed-size ring buffer; the
// whole session is additionally folded into a fixed set of levels of detail
// whose min/max buckets grow geometrically in duration. A query picks the
// coarsest level that still yields the requested number of points, so its
// cost depends on the point budget and not on the session length.
//
// Within a level the finalized buckets are contiguous: a bucket that no
// sample landed in is kept as an invalid (empty) bucket rather than
// skipped. Bucket boundaries are computed from integer bucket indices, so
// the end of one bucket is bit-identical to the start of the next.
//
// AddPoint and the queries may run concurrently. Reset may not; callers
// serialize it against everything else.
package history
