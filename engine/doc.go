// Package engine builds and caches completion engines: a resolved model
// connection plus the capability functions exposed to it, with a tool-call
// loop bounded by a consecutive-call guard.
//
// One engine is cached per agent/workflow type. Shared capability functions
// are registered once per engine; instance functions are rebound to the
// current thread every turn, replacing the previous turn's bindings.
package engine
