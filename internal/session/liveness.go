package session

import "sync"

// liveness es el token de generacion de la sesion. Toda mutacion que resulta
// de una llamada suspendida se ejecuta via run y se descarta si la sesion
// termino mientras tanto.
type liveness struct {
	mu      sync.RWMutex
	gen     uint64
	stopped bool
}

func (l *liveness) token() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gen
}

func (l *liveness) alive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.stopped
}

func (l *liveness) run(tok uint64, fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped || l.gen != tok {
		return false
	}
	fn()
	return true
}

// stop invalida todos los tokens emitidos. Es idempotente.
func (l *liveness) stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.stopped = true
	l.gen++
	return true
}
