// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console output to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// All commands accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase while keeping stdout
// free for command output.
package logger
