// Package logtail reads the end of the snooze log for the log command.
//
// Read seeks backwards from the end of the file in fixed chunks, so only
// the requested tail is loaded no matter how large the log grows. A missing
// log file is not an error; it simply has no lines yet.
//
// Format turns the JSON lines written by the logger back into the
// single-line console form:
//
//	2026-01-02 15:04:05 WRN favorite rolled back component=snooze story_id=abc
//
// Anything that is not a JSON object is passed through untouched.
package logtail
