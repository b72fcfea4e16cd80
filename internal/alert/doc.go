// Package alert turns threshold breaches into persisted, deduplicated
// alerts and manages their lifecycle.
//
// Breach events arrive through a Dispatcher, a bounded queue drained by a
// small worker pool, so the polling path never waits on alert storage.
// Service.HandleBreach raises an alert or folds the breach into an active
// alert for the same device that has seen activity within the dedup window.
//
// Lifecycle:
//
//	OPEN ──acknowledge──> ACKNOWLEDGED ──resolve──> RESOLVED
//	  └──────────────────resolve──────────────────────┘
//
// Acknowledge and resolve commands can also arrive over MQTT on
// coldwatch/command/alert/{id}; see Service.HandleCommand.
package alert
