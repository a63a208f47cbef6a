package middleware

import (
	"net"
	"net/http"
)

// ClientIP はリクエスト元のIPアドレスを返す。
// X-Forwarded-For等の解釈はchiのRealIPミドルウェアに任せ、ここではRemoteAddrだけを見る。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
