// Package bench measures slot-arena allocation performance across bitmap
// variants and records results as JSON-line observations.
//
// A Suite runs two phases per variant: a fill phase that races goroutines
// until the arena is exhausted, and a churn phase that measures steady-state
// allocate/free pairs at half occupancy. Observations carry both the measured
// values and the configuration that produced them, so result files stay
// self-describing. Occupancy traces can be captured alongside as compressed
// streams of roaring bitmap snapshots.
package bench
