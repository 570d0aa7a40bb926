package pipeline

import (
	"log"
	"sync"
)

// warnLimit is how many row-level warnings are logged verbatim per run.
const warnLimit = 3

// warnAgg counts row-level warnings and keeps the first few messages.
type warnAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newWarnAgg(limit int) *warnAgg { return &warnAgg{limit: limit} }

func (a *warnAgg) add(msg string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

func (a *warnAgg) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// log prints the aggregate under prefix; nothing when empty.
func (a *warnAgg) log(prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	log.Printf("%s: %d (showing first %d)", prefix, a.count, len(a.first))
	for i, s := range a.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}
