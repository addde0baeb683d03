// Package persist backs the scheduling session with durable storage.
//
// It currently supports:
//   - Work order and work center collections
//   - Session settings (scale, pinned cursor)
//
// Drivers are selected by Config.Driver ("file", "sqlite", or empty/"none"
// for disabled). Every call may fail; callers degrade to in-memory state.
package persist
