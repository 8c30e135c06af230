// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
)

type ConnectionInfo struct {
	ClientIP  string
	UserAgent string
	Origin    string
}

func newConnectionInfo(r *http.Request) *ConnectionInfo {
	return &ConnectionInfo{
		ClientIP:  getClientIPFromRequest(r),
		UserAgent: r.UserAgent(),
		Origin:    r.Header.Get("Origin"),
	}
}

// GenerateConnectionID returns a random id for a new connection. Ids are
// never reused, so a reconnecting user always gets a fresh one.
func GenerateConnectionID() string {
	return uuid.NewString()
}

func safeGoroutine(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("PANIC RECOVERED in %s: %v\nStack trace:\n%s\n",
					name, r, string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// getClientIPFromRequest prefers X-Real-Ip, then the first X-Forwarded-For
// entry, then the remote address.
func getClientIPFromRequest(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
