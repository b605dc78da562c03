package debug

import (
	"log"
	"sync"
)

var warned sync.Map

// WarnOnce logs msg the first time key is seen in this process.
func WarnOnce(key, msg string) bool {
	if _, loaded := warned.LoadOrStore(key, struct{}{}); loaded {
		return false
	}
	log.Printf("[warn] %s", msg)
	return true
}
