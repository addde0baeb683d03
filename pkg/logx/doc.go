// Package logx configures loadboard's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// The wrapper stays "live" across Service.Apply() calls, so components can
// hold a Logger while the sinks/levels are reconfigured at runtime.
package logx
