package cookie

import (
	"bytes"
	"net"
	"testing"
)

func TestGenerateClientCookie(t *testing.T) {
	clientIP := net.ParseIP("192.0.2.1").To4()
	serverIP := net.ParseIP("192.0.2.53").To4()

	cookie1 := GenerateClientCookie(clientIP, serverIP)
	cookie2 := GenerateClientCookie(clientIP, serverIP)

	// Cookies should be different (include random component)
	if bytes.Equal(cookie1[:], cookie2[:]) {
		t.Error("client cookies should be unique")
	}

	// Should be correct size
	if len(cookie1) != clientCookieSize {
		t.Errorf("client cookie size = %d, want %d", len(cookie1), clientCookieSize)
	}
}

func TestParseCookie(t *testing.T) {
	tests := []struct {
		name          string
		data          []byte
		wantClientLen int
		wantServerLen int
		wantErr       bool
	}{
		{
			name:          "client cookie only",
			data:          []byte{1, 2, 3, 4, 5, 6, 7, 8},
			wantClientLen: 8,
			wantServerLen: 0,
			wantErr:       false,
		},
		{
			name:          "client + server cookie",
			data:          []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			wantClientLen: 8,
			wantServerLen: 8,
			wantErr:       false,
		},
		{
			name:    "too short",
			data:    []byte{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "server cookie too long (>32 bytes)",
			data:    make([]byte, 8+33), // client + 33 byte server
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientCookie, serverCookie, err := ParseCookie(tt.data)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCookie() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if len(clientCookie) != tt.wantClientLen {
					t.Errorf("client cookie len = %d, want %d", len(clientCookie), tt.wantClientLen)
				}
				if len(serverCookie) != tt.wantServerLen {
					t.Errorf("server cookie len = %d, want %d", len(serverCookie), tt.wantServerLen)
				}
			}
		})
	}
}

func TestFormatCookie(t *testing.T) {
	var clientCookie [8]byte
	copy(clientCookie[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	// Client cookie only
	data := FormatCookie(clientCookie, nil)
	if len(data) != 8 {
		t.Errorf("format client only: len = %d, want 8", len(data))
	}
	if !bytes.Equal(data, clientCookie[:]) {
		t.Error("format client only: data mismatch")
	}

	// Client + server cookie
	serverCookie := []byte{9, 10, 11, 12, 13, 14, 15, 16}
	data = FormatCookie(clientCookie, serverCookie)
	if len(data) != 16 {
		t.Errorf("format client+server: len = %d, want 16", len(data))
	}

	// Parse back
	parsedClient, parsedServer, err := ParseCookie(data)
	if err != nil {
		t.Fatalf("parse formatted cookie: %v", err)
	}
	if !bytes.Equal(parsedClient[:], clientCookie[:]) {
		t.Error("parsed client cookie mismatch")
	}
	if !bytes.Equal(parsedServer, serverCookie) {
		t.Error("parsed server cookie mismatch")
	}
}

// Benchmark client cookie generation
func BenchmarkGenerateClientCookie(b *testing.B) {
	clientIP := net.ParseIP("192.0.2.1").To4()
	serverIP := net.ParseIP("192.0.2.53").To4()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GenerateClientCookie(clientIP, serverIP)
	}
}
