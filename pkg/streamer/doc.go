// ABOUTME: Streaming PCM16 playback package
// ABOUTME: Buffers unevenly arriving chunks and plays them back gaplessly
// Package streamer plays a stream of raw PCM16 chunks through an output device.
//
// Chunks are decoded into Segments and queued. Playback starts once half a
// second of audio is buffered and then chains each Segment to the natural end
// of the previous one. A watchdog restarts playback when end notifications
// stop arriving, and Stop fades the output to silence before resetting it.
//
// Example:
//
//	out := output.NewOto()
//	if err := out.Open(audio.SampleRate); err != nil {
//	    return err
//	}
//	s := streamer.New(out, streamer.Config{
//	    OnComplete: func() { fmt.Println("drained") },
//	})
//	s.AddPCM16(chunk)
//	s.Complete()
package streamer
