// ABOUTME: Native backend package documentation
// ABOUTME: Pure Go audio-only demuxers registered by file extension
// Package native plays audio files without FFmpeg. Each supported format
// is a Source that yields interleaved float32 samples; the Demuxer cuts
// the samples into fixed packets of PacketFrames frames whose pts counts
// frames at the source sample rate.
//
// Formats are registered by file extension. The package registers mp3
// (go-mp3), flac (mewkiz/flac), wav (go-audio/wav), ogg vorbis
// (jfreymuth/oggvorbis) and ogg opus (hraban/opus).
//
// Example:
//
//	if native.Supported(path) {
//		d, err := native.Open(path)
//		...
//	}
package native
