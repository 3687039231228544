// Package captions turns word-level transcripts into timed caption segments.
//
// Chunk groups words by count and by silence between them, StripLeadingTitle
// drops the captions that belong to the title narration, and the layout
// helpers resolve caption anchors and wrap text to the caption box.
package captions
