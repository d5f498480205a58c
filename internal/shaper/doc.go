// Package shaper interns document structural templates ("shapes") and
// attribute names so that repeated document structures cost a small
// integer comparison instead of a re-parse, and encodes/decodes
// documents to/from a dense, self-describing binary layout.
//
// # Overview
//
// Every document handed to a Shaper is reduced to two things: a ShapeId
// describing its structural template (which attributes it has, in what
// order, and what shape each holds) and a byte slice holding only the
// instance data the shape doesn't already imply. Two documents with the
// same attribute names, nesting, and primitive kinds — regardless of
// value — collapse onto the same ShapeId (spec §3, §8 "Shape identity").
//
// # Architecture
//
//	┌───────────────────────────────────────┐
//	│              Value (JSON-like)         │
//	└───────────────────────────────────────┘
//	                    │ Encode
//	                    ▼
//	┌───────────────────────────────────────┐
//	│   attributeDict        shapeDict       │
//	│   name -> AttributeId  content -> Id   │
//	│   (append-only, lock-free reads)       │
//	└───────────────────────────────────────┘
//	                    │
//	                    ▼
//	┌───────────────────────────────────────┐
//	│       ShapedDocument{ShapeId, bytes}   │
//	└───────────────────────────────────────┘
//	                    │ Decode / Accessor
//	                    ▼
//	┌───────────────────────────────────────┐
//	│              Value (JSON-like)         │
//	└───────────────────────────────────────┘
//
// # Concurrency
//
// attributeDict and shapeDict publish an atomically swapped snapshot
// (atomic.Pointer) on every insert; readers never take a lock. Writers
// serialize through a mutex and re-check under it before minting a new
// id, so a race to intern the same name or shape always converges on
// one winner (spec §7, §8 "Attribute idempotence").
//
// The accessor cache sits on top for repeated field reads: FindAccessor
// resolves an AttributePath once per (ShapeId, path) and caches the
// result, so hot read paths skip attribute-name lookups entirely.
package shaper
