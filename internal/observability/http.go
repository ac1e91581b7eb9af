package observability

import (
	"net"
	"net/http"
	"strings"
)

// RequestMeta is the per-request client metadata attached to websocket
// lifecycle events.
type RequestMeta struct {
	DeviceID  string
	RequestID string
	IP        string
}

// MetaFromRequest extracts client metadata from the upgrade request. The IP
// honors the first X-Forwarded-For hop when a proxy sits in front.
func MetaFromRequest(r *http.Request) RequestMeta {
	meta := RequestMeta{
		DeviceID:  r.Header.Get("X-Device-Id"),
		RequestID: r.Header.Get("X-Request-Id"),
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		meta.IP = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		return meta
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		meta.IP = host
		return meta
	}
	meta.IP = r.RemoteAddr
	return meta
}
