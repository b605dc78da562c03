//go:build simdebug

package debug

const assertionsEnabled = true
