package metainfo

import (
	"bytes"
	"crypto/sha1"
	"errors"

	"github.com/zeebo/bencode"
)

// File is one file entry of a multi-file torrent's info dict.
type File struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

// Info is the decoded "info" dictionary of a .torrent file, plus its
// derived 20-byte SHA-1 hash — the torrent-id the rest of this module
// addresses torrents by.
type Info struct {
	Name        string `bencode:"name"`
	PieceLength int64  `bencode:"piece length"`
	Pieces      []byte `bencode:"pieces"`
	Private     int64  `bencode:"private"`
	Length      int64  `bencode:"length"`
	Files       []File `bencode:"files"`

	Hash [20]byte `bencode:"-"`
}

// NewInfo decodes raw (the bencoded "info" dict, preserved verbatim by
// MetaInfo.RawInfo) and computes its SHA-1 hash, exactly the way the
// reference client derives a torrent's 20-byte identity from its info dict.
func NewInfo(raw bencode.RawMessage) (*Info, error) {
	var i Info
	if err := bencode.NewDecoder(bytes.NewReader(raw)).Decode(&i); err != nil {
		return nil, err
	}
	if len(i.Pieces)%20 != 0 {
		return nil, errors.New("metainfo: invalid pieces length")
	}
	if i.Length == 0 && len(i.Files) == 0 {
		return nil, errors.New("metainfo: info dict has neither length nor files")
	}
	i.Hash = sha1.Sum(raw)
	return &i, nil
}

// NumPieces returns the number of pieces described by Pieces.
func (i *Info) NumPieces() int { return len(i.Pieces) / 20 }

// PieceHash returns the expected SHA-1 digest of piece index idx.
func (i *Info) PieceHash(idx int) []byte {
	return i.Pieces[idx*20 : idx*20+20]
}

// TotalLength returns the torrent's total byte length, single- or
// multi-file.
func (i *Info) TotalLength() int64 {
	if len(i.Files) == 0 {
		return i.Length
	}
	var total int64
	for _, f := range i.Files {
		total += f.Length
	}
	return total
}

// IsPrivate reports the BEP-27 private flag.
func (i *Info) IsPrivate() bool { return i.Private == 1 }
