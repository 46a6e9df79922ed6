package rwlock

import "sync"

// readerPriority implements the reader-priority fairness policy (§4.2.2).
// A continuous stream of arriving readers can starve a waiting writer,
// because new readers bypass the writer condition entirely.
type readerPriority struct {
	mu sync.Mutex
	wc *sync.Cond

	gate writeGate

	readersHolding int
	writerHolding  bool
	writersWaiting int
}

func newReaderPriority() *readerPriority {
	l := &readerPriority{gate: newWriteGate()}
	l.wc = sync.NewCond(&l.mu)
	return l
}

func (l *readerPriority) ReaderLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readersHolding == 0 {
		l.gate.acquire()
	}
	l.readersHolding++
}

func (l *readerPriority) ReaderUnlock() {
	l.mu.Lock()
	l.readersHolding--
	becameZero := l.readersHolding == 0
	l.mu.Unlock()

	if becameZero {
		l.gate.release()
		l.mu.Lock()
		if l.writersWaiting > 0 {
			l.wc.Signal()
		}
		l.mu.Unlock()
	}
}

func (l *readerPriority) WriterLock() {
	l.mu.Lock()
	l.writersWaiting++
	for l.readersHolding != 0 || l.writerHolding {
		l.wc.Wait()
	}
	l.writersWaiting--
	l.writerHolding = true
	l.mu.Unlock()

	l.gate.acquire()
}

func (l *readerPriority) WriterUnlock() {
	l.gate.release()

	l.mu.Lock()
	l.writerHolding = false
	if l.writersWaiting > 0 && l.readersHolding == 0 {
		l.wc.Signal()
	}
	l.mu.Unlock()
}
