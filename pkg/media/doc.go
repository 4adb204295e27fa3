// ABOUTME: Media collaborator contracts package
// ABOUTME: Interfaces implemented by the ffmpeg and native backends
// Package media defines the contracts between the playback engine and the
// container demuxer and codec decoders.
//
// A Demuxer yields Packets tagged with a stream index and pts. Audio
// packets pass through an AudioDecoder (which may answer
// ErrNeedsMoreInput) and an AudioResampler that normalizes every frame to
// interleaved float32. Video packets pass through a VideoDecoder that
// produces RGB24 frames.
//
// Implementations live in the ffmpeg (go-astiav) and native (pure Go,
// audio only) subpackages.
//
// Example:
//
//	demuxer, err := ffmpeg.Open("movie.mkv")
//	info, _ := media.FindStream(demuxer.Streams(), media.MediaTypeAudio)
//	dec, err := demuxer.NewAudioDecoder(info.Index)
package media
