package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSafeClient_Timeout(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() がnilを返した")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("safeurlのTransportが設定されていない")
	}
}

// httptestサーバーは127.0.0.1で起動するため、接続は拒否されるはず。
func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard().NewSafeClient(2 * time.Second)
	resp, err := client.Get(ts.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("ループバックへのリクエストがブロックされなかった")
	}
}

func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"公開HTTPS", "https://feeds.example.com/podcast.xml", false},
		{"公開HTTP", "http://example.org/rss", false},
		{"公開IP", "https://93.184.216.34/feed", false},
		{"空文字列", "", true},
		{"ftpスキーム", "ftp://example.com/feed", true},
		{"fileスキーム", "file:///etc/passwd", true},
		{"ホストなし", "https:///path", true},
		{"localhost", "http://localhost/feed", true},
		{"大文字のlocalhost", "http://LOCALHOST/feed", true},
		{"ループバック", "http://127.0.0.1/feed", true},
		{"プライベート10", "http://10.1.2.3/feed", true},
		{"プライベート192", "http://192.168.0.10/feed", true},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data", true},
		{"メタデータホスト", "http://metadata.google.internal/", true},
		{"IPv6ループバック", "http://[::1]/feed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
