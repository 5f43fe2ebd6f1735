package orchestrator

import "sync"

// keyedMutex serializa el procesamiento de eventos por clave de usuario
// (spec §5): cada (brand, channel, channel_account_id) tiene su propio
// candado, así que usuarios distintos nunca se bloquean entre sí. No hay
// un primitivo de lock-por-clave en el stack (x/sync solo ofrece
// errgroup/singleflight/semaphore), así que esto queda sobre sync.Mutex
// puro.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock bloquea la clave dada y retorna la función de liberación.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
