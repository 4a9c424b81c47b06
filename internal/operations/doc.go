// Package operations provides the pipeline framework that turns a directory
// of raw acquisitions into analyzed, exported data sets.
//
// An operation is a sequence of steps executed against a shared state:
//
//   - import: discover .abf files and PrairieView folders, load recordings
//   - process: baseline subtraction and rolling-mean detrending
//   - analyze: event detection, firing frequencies, epoch periodograms
//   - export: CSV tables and an optional Excel workbook
//
// Core components:
//
// Manager orchestrates execution. Steps run sequentially in dependency
// order with a per-step timeout and retry for retryable failures. A failed
// step skips everything that depends on it unless ContinueOnError is set.
//
// Step is the unit of work. Implementations embed BaseStep and read their
// parameters from the OperationState config map, which the manager fills
// from the OperationRequest.
//
// StatusBroadcaster is the single authority for status updates. It keeps a
// snapshot per operation and pushes the complete snapshot to the WebSocket
// hub on every change, so clients never have to merge partial events.
//
// Example:
//
//	manager := operations.NewManager(hub, nil, operations.NewConfig())
//	opts := operations.StepOptions{StatusBroadcaster: manager.GetBroadcaster()}
//	if err := operations.RegisterPipeline(manager, discovery, csvExp, xlsxExp, opts); err != nil {
//		return err
//	}
//	resp, err := manager.Execute(ctx, operations.OperationRequest{
//		InputDir:  "data/raw",
//		OutputDir: "session01",
//		Format:    operations.FormatAuto,
//	})
package operations
