// Package program describes the user program loaded into a frame and turns
// the frame's raw error reports into reports against the original source.
//
// How a reported position is recovered depends on the program's language:
//
//   - javascript: the wrapper header offset is removed from the position in
//     the first line of the error text.
//   - coffeescript: the compiled line number found in the error text is
//     mapped back by statement counting.
//   - glowscript, vpython: the first line of traceback context is matched
//     fuzzily against the source.
//
// Reports leave this package sanitized for display in the host UI.
package program
