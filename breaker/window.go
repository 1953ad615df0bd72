package breaker

// window 固定容量的环形结果窗口，满时覆盖最旧的结果
type window struct {
	outcomes []Outcome
	next     int
	size     int
	failures int
}

func newWindow(capacity int) *window {
	return &window{outcomes: make([]Outcome, capacity)}
}

func (w *window) add(o Outcome) {
	if w.size == len(w.outcomes) {
		if w.outcomes[w.next] == Failure {
			w.failures--
		}
	} else {
		w.size++
	}
	w.outcomes[w.next] = o
	w.next = (w.next + 1) % len(w.outcomes)
	if o == Failure {
		w.failures++
	}
}

func (w *window) failureRate() float64 {
	if w.size == 0 {
		return 0
	}
	return float64(w.failures) / float64(w.size)
}

func (w *window) reset() {
	w.next, w.size, w.failures = 0, 0, 0
}
