package ledger

// Change is published after every successful quantity-affecting operation.
type Change struct {
	MaterialID string
	Name       string
	Quantity   int
	Delta      int
	Op         Op
}

// Subscribe returns a buffered channel of changes and a cancel func. Slow
// subscribers miss events rather than blocking the ledger.
func (l *Ledger) Subscribe(buf int) (<-chan Change, func()) {
	ch := make(chan Change, buf)
	l.subMu.Lock()
	id := l.next
	l.next++
	l.subs[id] = ch
	l.subMu.Unlock()

	return ch, func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
	}
}

func (l *Ledger) publish(c Change) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
