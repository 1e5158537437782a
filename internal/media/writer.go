package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/bogem/id3v2"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/slowverb/slowverb/api"
)

// maxArtworkDim bounds embedded cover art; larger images are downscaled
// before embedding.
const maxArtworkDim = 500

// WAVWriter re-encodes an exported WAV pass-through while injecting
// title/artist metadata as a LIST-INFO chunk and the cover art as an ID3v2
// tag in an "id3 " chunk, then atomically replaces the original file. The
// PCM data is copied bit-exact; only container metadata changes.
type WAVWriter struct{}

// NewWAVWriter creates a metadata writer for exported WAV files.
func NewWAVWriter() *WAVWriter {
	return &WAVWriter{}
}

// Write embeds track metadata into the WAV at path.
func (w *WAVWriter) Write(path string, track api.Track) error {
	tmp := path + ".meta"
	if err := w.rewrite(path, tmp, track); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (w *WAVWriter) rewrite(srcPath, dstPath string, track api.Track) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return fmt.Errorf("metadata pass: %s is not a valid wav file", srcPath)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := wav.NewEncoder(out,
		int(dec.SampleRate), int(dec.BitDepth), int(dec.NumChans), int(dec.WavAudioFormat))
	enc.Metadata = &wav.Metadata{
		Title:    track.Title,
		Artist:   track.Artist,
		Product:  track.Album,
		Software: "slowverb",
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		SourceBitDepth: int(dec.BitDepth),
		Data:           make([]int, 8192),
	}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return err
		}
		if n == 0 {
			break
		}
		buf.Data = buf.Data[:n]
		if werr := enc.Write(buf); werr != nil {
			return werr
		}
		buf.Data = buf.Data[:cap(buf.Data)]
		if err == io.EOF {
			break
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if len(track.CoverArt) == 0 {
		return nil
	}
	return appendID3Chunk(out, track)
}

// appendID3Chunk renders an ID3v2 tag carrying the cover art and appends
// it to the RIFF container as an "id3 " chunk, patching the RIFF size.
func appendID3Chunk(f *os.File, track api.Track) error {
	art, err := ResizeArtwork(track.CoverArt, maxArtworkDim)
	if err != nil {
		// Undecodable artwork: embed the text tag alone.
		art = nil
	}

	tag := id3v2.NewEmptyTag()
	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}
	if art != nil {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     art,
		})
	}

	var body bytes.Buffer
	if _, err := tag.WriteTo(&body); err != nil {
		return err
	}
	payload := body.Bytes()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	header := make([]byte, 8)
	copy(header[0:4], "id3 ")
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := f.Write(header); err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		return err
	}
	if len(payload)%2 == 1 {
		// RIFF chunks are word aligned.
		if _, err := f.Write([]byte{0}); err != nil {
			return err
		}
	}

	newEnd, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	riffSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(riffSize, uint32(newEnd-8))
	if _, err := f.WriteAt(riffSize, 4); err != nil {
		return err
	}
	return nil
}
