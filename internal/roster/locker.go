// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"context"
	"sync"
)

// Locker serializes identifier and callsign allocation per department.
//
// Lock blocks until the department's lock is held or ctx is done. The
// returned unlock function releases it and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, department string) (unlock func(), err error)
}

// NoopLocker does no locking. Concurrent synthesis of the same department can
// then allocate the same value twice.
type NoopLocker struct{}

// Lock implements Locker.
func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// LocalLocker is an in-process keyed mutex. It only excludes callers sharing
// the same LocalLocker.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates a LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

// Lock implements Locker.
func (l *LocalLocker) Lock(ctx context.Context, department string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	k, ok := l.locks[department]
	if !ok {
		k = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[department] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(department, k)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.sem
			l.release(department, k)
		})
	}, nil
}

func (l *LocalLocker) release(department string, k *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, department)
	}
}

// held returns the number of departments with waiters or holders.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var (
	_ Locker = NoopLocker{}
	_ Locker = (*LocalLocker)(nil)
)
