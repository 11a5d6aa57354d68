// Package linemap recovers original source lines from errors reported
// against wrapped or compiled program text.
//
// Exact reconstruction is impossible once the build step has reordered,
// merged or elided lines, so every mapper here is a best-effort heuristic:
//
//   - FindLine: fuzzy longest-common-prefix match of one line of error
//     context against every source line.
//   - InsertLineNumbers: structural mapping for targets whose generated
//     output expands each statement by a fixed number of lines.
//   - NormalizeJavaScriptError: rewrites a "file:line:col: ..." error from
//     the JavaScript wrapper into "Error in line N:...".
//
// Mappers never panic and never return errors. A miss is reported as
// NoMatch (or ok == false) and callers show the error without a line
// rather than a wrong one.
//
// Example Usage:
//
//	if n := linemap.FindLine(lines, contextLine, indent); n != linemap.NoMatch {
//		report.Line = n
//	}
package linemap
