// Package common provides shared utilities for this module.
//
// This package includes:
//   - Pointer helpers (String, Bool, Int, etc.)
//   - Generic Clone function for deep copying
//   - Error types with path context
package common
