// ABOUTME: mDNS service discovery package
// ABOUTME: Discover and advertise PCM stream servers on the local network
// Package discovery provides mDNS service discovery for stream servers.
//
// Servers advertise _pcmstream._tcp with their WebSocket path in a TXT
// record; players browse for it.
//
// Example:
//
//	server, err := discovery.Discover(ctx, 5*time.Second)
//	if err == nil {
//	    fmt.Printf("Found: %s at %s\n", server.Name, server.Addr())
//	}
package discovery
