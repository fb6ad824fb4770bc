// ABOUTME: Tests for mDNS service discovery
// ABOUTME: Validates Manager lifecycle and answer conversion
package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	manager := NewManager(Config{ServiceName: "test-service", Port: 8080})
	defer manager.Stop()

	if manager.config.ServiceName != "test-service" {
		t.Errorf("Expected ServiceName 'test-service', got '%s'", manager.config.ServiceName)
	}
	if manager.config.Port != 8080 {
		t.Errorf("Expected Port 8080, got %d", manager.config.Port)
	}
	if manager.config.Path != "/stream" {
		t.Errorf("Expected default path /stream, got %s", manager.config.Path)
	}
	if manager.Servers() == nil {
		t.Fatal("Servers() returned nil channel")
	}
}

func TestManagerStop(t *testing.T) {
	manager := NewManager(Config{ServiceName: "test", Port: 8080})

	manager.Stop()

	select {
	case <-manager.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("Context should be cancelled after Stop()")
	}
}

func TestServerFromEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{
			name: "ipv4 with path",
			entry: &mdns.ServiceEntry{
				Name:       "Kitchen._pcmstream._tcp.local.",
				AddrV4:     net.ParseIP("192.168.1.20"),
				Port:       8927,
				InfoFields: []string{"path=/audio"},
			},
			want: &ServerInfo{Name: "Kitchen", Host: "192.168.1.20", Port: 8927, Path: "/audio"},
		},
		{
			name: "default path",
			entry: &mdns.ServiceEntry{
				Name:   "Den._pcmstream._tcp.local.",
				AddrV4: net.ParseIP("10.0.0.5"),
				Port:   9000,
			},
			want: &ServerInfo{Name: "Den", Host: "10.0.0.5", Port: 9000, Path: "/stream"},
		},
		{
			name: "host name fallback",
			entry: &mdns.ServiceEntry{
				Name: "Office._pcmstream._tcp.local.",
				Host: "office.local.",
				Port: 8927,
			},
			want: &ServerInfo{Name: "Office", Host: "office.local", Port: 8927, Path: "/stream"},
		},
		{
			name:  "no address",
			entry: &mdns.ServiceEntry{Name: "x", Port: 8927},
		},
		{
			name:  "no port",
			entry: &mdns.ServiceEntry{Name: "x", AddrV4: net.ParseIP("10.0.0.5")},
		},
		{
			name: "nil entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := serverFromEntry(tt.entry)
			if tt.want == nil {
				if ok {
					t.Errorf("expected entry rejected, got %+v", got)
				}
				return
			}
			if !ok {
				t.Fatal("expected entry accepted")
			}
			if *got != *tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestServerInfoAddr(t *testing.T) {
	tests := []struct {
		info ServerInfo
		want string
	}{
		{ServerInfo{Host: "192.168.1.100", Port: 8080}, "192.168.1.100:8080"},
		{ServerInfo{Host: "fe80::1", Port: 8927}, "[fe80::1]:8927"},
	}

	for _, tt := range tests {
		if got := tt.info.Addr(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestGetLocalIPs(t *testing.T) {
	ips, err := getLocalIPs()
	if err != nil {
		t.Fatalf("getLocalIPs failed: %v", err)
	}

	for _, ip := range ips {
		if ip.To4() == nil {
			t.Errorf("getLocalIPs returned non-IPv4 address: %v", ip)
		}
		if ip.IsLoopback() {
			t.Errorf("getLocalIPs returned loopback address: %v", ip)
		}
	}
}
