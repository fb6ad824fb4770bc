// ABOUTME: Audio output package for playing decoded segments
// ABOUTME: Provides the Device, Voice and Gain abstractions and an oto backend
// Package output provides the audio output path used by the streamer.
//
// A Device plays one Segment at a time through a Gain stage and reports the
// natural end of each Segment through a callback. Gain stages support linear
// ramps so playback can be faded out without a click.
//
// Example:
//
//	dev := output.NewOto()
//	err := dev.Open(audio.SampleRate)
//	gain := dev.NewGain()
//	voice, err := dev.Play(seg, gain, func() { fmt.Println("done") })
package output
