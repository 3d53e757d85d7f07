// Package scene consolidates label annotations into non-overlapping scenes.
//
// A Scene is a half-open interval [start, end) carrying the set of entities
// detected in it and the peak explicit-content likelihood of the frames that
// fall inside it. The Factory builds candidate scenes from the segments of a
// single annotation, applying the confidence threshold to annotations with
// more than one segment. The Consolidator folds candidates one at a time into
// a sorted working set, splitting existing scenes at candidate boundaries so
// the output always partitions the annotated parts of the timeline:
//
//	existing  [10s ─────────────── 30s)  {cat}
//	candidate       [20s ── 25s)         {dog}
//	result    [10s ─ 20s)[20s ─ 25s)[25s ─ 30s)
//	           {cat}      {cat, dog}  {cat}
//
// Consolidation is synchronous, performs no I/O, and is deterministic for a
// given input order.
package scene
