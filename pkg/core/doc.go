// Package core defines the shared language of the leapmapper system.
//
// This package contains:
//   - Property sets (Properties) used by every configurable strategy
//   - Setting enums (AutoMappingBehavior, ExecutorType, LocalCacheScope, ...)
//   - Store-side value kinds (SQLType) and statement classifications
//   - Placeholder styles for bound SQL
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
