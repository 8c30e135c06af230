// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"sync"
)

// ConnectionPool caps open websocket connections, in total and per client IP.
type ConnectionPool struct {
	maxConnections      int
	maxConnectionsPerIP int
	activeConns         map[string]int // IP -> connection count
	totalActive         int
	mu                  sync.RWMutex
	semaphore           chan struct{}
}

// NewConnectionPool returns a pool admitting maxTotal connections. A maxPerIP
// of zero or less disables the per-IP cap.
func NewConnectionPool(maxTotal, maxPerIP int) *ConnectionPool {
	return &ConnectionPool{
		maxConnections:      maxTotal,
		maxConnectionsPerIP: maxPerIP,
		activeConns:         make(map[string]int),
		semaphore:           make(chan struct{}, maxTotal),
	}
}

func (cp *ConnectionPool) Acquire(clientIP string) error {
	select {
	case cp.semaphore <- struct{}{}:
	default:
		return ErrMaxConnReached
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.maxConnectionsPerIP > 0 && cp.activeConns[clientIP] >= cp.maxConnectionsPerIP {
		<-cp.semaphore
		return newMaxConnPerIpReachedError(clientIP)
	}

	cp.activeConns[clientIP]++
	cp.totalActive++
	return nil
}

func (cp *ConnectionPool) Release(clientIP string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	count, ok := cp.activeConns[clientIP]
	if !ok {
		return
	}

	if count <= 1 {
		delete(cp.activeConns, clientIP)
	} else {
		cp.activeConns[clientIP] = count - 1
	}
	cp.totalActive--

	<-cp.semaphore
}

func (cp *ConnectionPool) Stats() (total int, perIP map[string]int) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	ipCopy := make(map[string]int, len(cp.activeConns))
	for ip, count := range cp.activeConns {
		ipCopy[ip] = count
	}

	return cp.totalActive, ipCopy
}
