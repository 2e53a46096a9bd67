// Package translation translates a transcript one segment at a time while
// keeping every segment's timing untouched.
//
// Backends (Google Translate, an OpenAI-compatible chat endpoint) implement
// Backend; Paced wraps any backend with request pacing and a per-call
// deadline.
package translation
