// Package xmp marks PNG images as spherical panoramas by inserting Google
// Photo Sphere (GPano) XMP metadata.
package xmp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// Keyword is the iTXt keyword viewers look for.
const Keyword = "XML:com.adobe.xmp"

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ErrNotPNG is returned for data that does not start with a PNG IHDR chunk.
var ErrNotPNG = errors.New("not a PNG image")

// Tagger inserts GPano metadata into encoded PNG images.
type Tagger struct {
	// Software is written as GPano:StitchingSoftware.
	Software string
	// Heading is the compass heading of the image center, in degrees.
	Heading float64
}

// NewTagger returns a tagger that names software as the stitcher.
func NewTagger(software string) *Tagger {
	return &Tagger{Software: software, Heading: 180}
}

// Tag returns a copy of data with an XMP iTXt chunk placed right after
// IHDR. Any XMP chunk already present is dropped. A stereo image records two
// source photos.
func (t *Tagger) Tag(data []byte, stereo bool) ([]byte, error) {
	width, height, err := Dimensions(data)
	if err != nil {
		return nil, err
	}

	packet := t.Packet(width, height, stereo)
	chunk := buildChunk("iTXt", itxt(Keyword, packet))

	ihdrEnd := len(pngSignature) + 8 + 13 + 4
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)

	rest := data[ihdrEnd:]
	for len(rest) > 0 {
		n, typ, err := nextChunk(rest)
		if err != nil {
			return nil, err
		}
		if typ == "iTXt" && isXMP(rest[8:n-4]) {
			rest = rest[n:]
			continue
		}
		out = append(out, rest[:n]...)
		rest = rest[n:]
	}
	return out, nil
}

// Packet renders the XMP packet for an equirectangular image.
func (t *Tagger) Packet(width, height int, stereo bool) string {
	photos := 1
	if stereo {
		photos = 2
	}

	var b strings.Builder
	b.WriteString("<?xpacket begin=\"\ufeff\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>")
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/">`)
	b.WriteString(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">`)
	b.WriteString(`<rdf:Description rdf:about="" xmlns:GPano="http://ns.google.com/photos/1.0/panorama/">`)
	prop := func(name string, value any) {
		fmt.Fprintf(&b, "<GPano:%s>%v</GPano:%s>", name, value, name)
	}
	prop("UsePanoramaViewer", "True")
	prop("ProjectionType", "equirectangular")
	if t.Software != "" {
		prop("StitchingSoftware", escape(t.Software))
	}
	prop("SourcePhotosCount", photos)
	prop("PoseHeadingDegrees", fmt.Sprintf("%.1f", t.Heading))
	prop("InitialViewHeadingDegrees", 0)
	prop("InitialViewPitchDegrees", 0)
	prop("InitialViewRollDegrees", 0)
	prop("CroppedAreaLeftPixels", 0)
	prop("CroppedAreaTopPixels", 0)
	prop("CroppedAreaImageWidthPixels", width)
	prop("CroppedAreaImageHeightPixels", height)
	prop("FullPanoWidthPixels", width)
	prop("FullPanoHeightPixels", height)
	b.WriteString(`</rdf:Description></rdf:RDF></x:xmpmeta><?xpacket end="w"?>`)
	return b.String()
}

// Dimensions reads width and height from the IHDR chunk of data.
func Dimensions(data []byte) (int, int, error) {
	if len(data) < len(pngSignature)+8+13+4 || !bytes.Equal(data[:8], pngSignature) {
		return 0, 0, ErrNotPNG
	}
	hdr := data[8:]
	if binary.BigEndian.Uint32(hdr[:4]) != 13 || string(hdr[4:8]) != "IHDR" {
		return 0, 0, ErrNotPNG
	}
	w := binary.BigEndian.Uint32(hdr[8:12])
	h := binary.BigEndian.Uint32(hdr[12:16])
	return int(w), int(h), nil
}

// Extract returns the XMP packet stored in data, if any.
func Extract(data []byte) (string, bool) {
	if _, _, err := Dimensions(data); err != nil {
		return "", false
	}
	rest := data[8:]
	for len(rest) > 0 {
		n, typ, err := nextChunk(rest)
		if err != nil {
			return "", false
		}
		body := rest[8 : n-4]
		if typ == "iTXt" && isXMP(body) {
			// keyword NUL, flag, method, language NUL, translated keyword NUL
			return string(body[len(Keyword)+5:]), true
		}
		rest = rest[n:]
	}
	return "", false
}

func nextChunk(b []byte) (int, string, error) {
	if len(b) < 12 {
		return 0, "", fmt.Errorf("truncated PNG chunk header")
	}
	length := int(binary.BigEndian.Uint32(b[:4]))
	n := 12 + length
	if n > len(b) {
		return 0, "", fmt.Errorf("truncated PNG chunk %q", b[4:8])
	}
	return n, string(b[4:8]), nil
}

func isXMP(body []byte) bool {
	return len(body) > len(Keyword)+5 && string(body[:len(Keyword)]) == Keyword && body[len(Keyword)] == 0
}

func itxt(keyword, text string) []byte {
	body := make([]byte, 0, len(keyword)+5+len(text))
	body = append(body, keyword...)
	body = append(body, 0, 0, 0) // NUL, uncompressed, method
	body = append(body, 0)       // empty language tag
	body = append(body, 0)       // empty translated keyword
	body = append(body, text...)
	return body
}

func buildChunk(typ string, body []byte) []byte {
	chunk := make([]byte, 8, 12+len(body))
	binary.BigEndian.PutUint32(chunk[:4], uint32(len(body)))
	copy(chunk[4:8], typ)
	chunk = append(chunk, body...)

	crc := crc32.NewIEEE()
	crc.Write(chunk[4:])
	return binary.BigEndian.AppendUint32(chunk, crc.Sum32())
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
