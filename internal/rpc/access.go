package rpc

import (
	"net"
	"net/http"
)

// accessControl enforces the RPC IP allow-list and answers CORS.
type accessControl struct {
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

func newAccessControl(allowedIPs, corsOrigins []string) *accessControl {
	return &accessControl{
		allowedNets: parseAllowedIPs(allowedIPs),
		corsOrigins: corsOrigins,
	}
}

// parseAllowedIPs converts IP and CIDR entries into networks. A bare IP
// becomes a /32 or /128. Unparseable entries are skipped.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 128
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// wrap filters h by remote IP. With cors set it also adds CORS headers and
// answers preflight requests.
func (a *accessControl) wrap(h http.Handler, cors bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.allowRemote(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if cors {
			a.setCORSHeaders(w, r)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		h.ServeHTTP(w, r)
	})
}

func (a *accessControl) allowRemote(r *http.Request) bool {
	if len(a.allowedNets) == 0 {
		return true
	}
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(remote)
	if ip == nil {
		return false
	}
	for _, n := range a.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *accessControl) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(a.corsOrigins) == 0 {
		return
	}
	for _, o := range a.corsOrigins {
		if o != "*" && o != origin {
			continue
		}
		w.Header().Set("Access-Control-Allow-Origin", o)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		return
	}
}
