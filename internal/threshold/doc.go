// Package threshold decides how serious a freezer reading is.
//
// It holds three pieces:
//
//   - Profiles and assignments: named temperature/humidity bounds and the
//     time windows in which they apply to a device (SQLiteRepository).
//   - Resolver: picks the assignment in force at a timestamp. The latest
//     effective start wins; equal starts prefer the default assignment,
//     then the newest row.
//   - Classify and DetectBreach: pure functions turning a reading into a
//     Status and at most one BreachEvent.
//
// When no profile applies, Classify returns NORMAL and DetectBreach falls
// back to the device's target temperature and deviation thresholds.
package threshold
