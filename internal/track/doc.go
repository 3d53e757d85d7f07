// Package track renders consolidated scenes as text tracks.
//
// Each scene becomes one cue: a "start --> end" line followed by the entity
// descriptions joined with " - ". The object track optionally appends the
// entity categories; the emoji track replaces each entity with an emoji
// looked up through an EmojiResolver and memoized per rendering.
package track
