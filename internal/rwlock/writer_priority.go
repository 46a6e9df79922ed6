package rwlock

import "sync"

// writerPriority implements the writer-priority fairness policy (§4.2.3).
// Writers queue naturally on the write gate; readers are held back whenever
// any writer is in line, giving writers strict priority.
type writerPriority struct {
	mu sync.Mutex
	rc *sync.Cond

	gate writeGate

	readersHolding int
	readersWaiting int
	writersWaiting int
}

func newWriterPriority() *writerPriority {
	l := &writerPriority{gate: newWriteGate()}
	l.rc = sync.NewCond(&l.mu)
	return l
}

func (l *writerPriority) ReaderLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readersWaiting++
	for l.writersWaiting > 0 {
		l.rc.Wait()
	}
	l.readersWaiting--
	if l.readersHolding == 0 {
		l.gate.acquire()
	}
	l.readersHolding++
}

func (l *writerPriority) ReaderUnlock() {
	l.mu.Lock()
	l.readersHolding--
	becameZero := l.readersHolding == 0
	shouldBroadcast := !becameZero && l.writersWaiting == 0 && l.readersWaiting > 0
	if shouldBroadcast {
		l.rc.Broadcast()
	}
	l.mu.Unlock()

	if becameZero {
		l.gate.release()
	}
}

func (l *writerPriority) WriterLock() {
	l.mu.Lock()
	l.writersWaiting++
	l.mu.Unlock()

	l.gate.acquire()
}

func (l *writerPriority) WriterUnlock() {
	l.mu.Lock()
	l.writersWaiting--
	broadcast := l.writersWaiting == 0 && l.readersWaiting > 0
	l.mu.Unlock()

	if broadcast {
		l.mu.Lock()
		l.rc.Broadcast()
		l.mu.Unlock()
	}

	l.gate.release()
}
