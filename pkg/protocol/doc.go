// ABOUTME: PCM stream wire protocol package
// ABOUTME: Defines JSON stream messages and the WebSocket client
// Package protocol implements the pcmstream wire protocol.
//
// Every text frame is a JSON object {"type": ..., "data": ...}. Audio
// travels as base64 PCM16 in "audio" messages; binary frames are accepted
// as raw PCM16 as well.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8927"})
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	for ev := range client.Events {
//	    fmt.Println(ev.Type)
//	}
package protocol
