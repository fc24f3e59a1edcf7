// Package pgs decodes BluRay presentation graphics (SUP) streams into rendered
// grayscale subtitle frames.
//
// A stream is a sequence of "PG" packets. PacketReader frames them, Decode turns
// each payload into a typed Segment (composition, palette, window layout, object
// fragment, end marker), and Decoder drives the composition state machine:
// it keeps the active tables, reassembles bitmap objects split across packets,
// renders them onto a Canvas with the run-length compositor, and hands finished
// frames with their display interval to a FrameEmitter.
//
// One Decoder owns all of its state and must only be driven from a single
// goroutine. Run independent streams on independent Decoders.
package pgs
