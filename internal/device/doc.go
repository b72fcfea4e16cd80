// Package device provides the freezer registry for Coldwatch Core.
//
// A Device is a cold-storage unit whose sensor is read over Modbus TCP or
// RTU. Besides connection settings it carries register addresses, linear
// calibration (value = raw*scale + offset) and an optional fallback policy
// (target temperature with warning/critical deviations) used when no
// threshold profile is assigned.
//
// # Architecture
//
//	┌──────────────────┐    ┌──────────────────┐
//	│     Registry     │───▶│    Repository    │──▶ SQLite (devices table)
//	│ • cache by ID    │    │ • CRUD           │
//	│ • active list    │    │ • ListActive     │
//	└──────────────────┘    └──────────────────┘
//	        ▲
//	        │ ListActiveDevices / GetDevice
//	   monitor.Scheduler, ingest.Pipeline
//
// # Thread Safety
//
// Registry methods are safe for concurrent use. Devices handed out are deep
// copies, so callers may modify them freely.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(logger)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	devices, err := registry.ListActiveDevices(ctx)
package device
