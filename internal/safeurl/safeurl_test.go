package safeurl

import "testing"

func TestIsHTTPOrHTTPS(t *testing.T) {
	tests := []struct {
		url   string
		allow bool
	}{
		{"http://provider.example/get.php?username=u&password=p&type=m3u_plus", true},
		{"https://provider.example/playlist.m3u8", true},
		{"HTTP://provider.example", true},
		{"HTTPS://provider.example", true},
		{"http://", false},
		{"file:///etc/passwd", false},
		{"ftp://provider.example/playlist.m3u", false},
		{"data:text/plain,#EXTM3U", false},
		{"", false},
		{"not-a-url", false},
		{"/relative/playlist.m3u", false},
	}
	for _, tt := range tests {
		if got := IsHTTPOrHTTPS(tt.url); got != tt.allow {
			t.Errorf("IsHTTPOrHTTPS(%q) = %v, want %v", tt.url, got, tt.allow)
		}
	}
}
