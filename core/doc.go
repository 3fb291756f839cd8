// Package core defines the shared data model of botrelay: conversation
// threads, persisted messages, chat turns exchanged with language models, the
// capability call context and the consecutive-call limiter.
//
// The types here are deliberately free of behavior beyond invariant
// maintenance so that every other package (config, engine, history, router,
// a2a) can depend on core without cycles.
package core
