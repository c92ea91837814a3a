// Package logger wraps zap with a small, context-first API:
//   - a global sugared logger writing a colored console format to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and switching for the --log-level flag,
//   - leveled helpers (Info, InfoKV, WarnKV, ...).
//
// Services receive a context and log through it, so the logger name
// ("workflow", "keygen", "installer") follows the call chain.
package logger
