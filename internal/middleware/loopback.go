// Package middleware provides HTTP middlewares for client filtering and logging.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// LoopbackOnly rejects requests whose remote address is not a loopback IP,
// and requests addressed to any host name other than localhost or a
// loopback IP, which is what a DNS-rebound browser page sends.
func LoopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopback(r.RemoteAddr) {
			http.Error(w, "only local clients are allowed", http.StatusForbidden)
			return
		}
		if !isLocalHost(r.Host) {
			http.Error(w, "unexpected host", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLocalHost(hostport string) bool {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
