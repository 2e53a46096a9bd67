// Package language normalizes the language codes used to name subtitle and
// video artifacts, and tracks which languages are written right-to-left.
//
// Codes are kept in the form the translation backends expect ("iw" for
// Hebrew, "zh-CN" for Simplified Chinese); validation and display names
// go through golang.org/x/text so any BCP 47 tag is accepted.
package language
