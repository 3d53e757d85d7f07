// Package emojidex looks up emoji for detected labels using the emojidex
// search API. Labels are folded to lower case and joined with underscores
// before searching; the first result carrying a non-null moji wins.
package emojidex
