// ABOUTME: FFmpeg backend package documentation
// ABOUTME: Demuxing and decoding through go-astiav
// Package ffmpeg implements the media contracts on top of FFmpeg through
// go-astiav. It opens any container FFmpeg understands, decodes audio to
// interleaved float32 with libswresample and scales video to RGB24 with
// libswscale.
//
// Example:
//
//	d, err := ffmpeg.Open("movie.mkv")
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//	for {
//		p, err := d.ReadPacket()
//		if errors.Is(err, media.ErrEndOfStream) {
//			break
//		}
//		p.Free()
//	}
package ffmpeg
