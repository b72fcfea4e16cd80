// Package monitor runs the cold-storage polling loop.
//
// A Scheduler waits out its initial delay, then on every tick reads each
// active device through a modbus.Reader and hands the result to the
// ingestion pipeline. Transient read errors are retried, configuration errors
// are not, and a device that cannot be read is recorded as a failed reading
// so the gap is visible in history.
package monitor
