// Package metainfo decodes .torrent files (the bencoded metainfo dictionary
// of BEP 3) into the Announce/AnnounceList/Info fields torrentstore needs to
// register a torrent-id with the Peer Registry.
package metainfo

import (
	"errors"
	"io"

	"github.com/zeebo/bencode"
)

// MetaInfo is the top-level .torrent file dictionary.
type MetaInfo struct {
	// TODO implement UnmarshalBencode([]byte) error for Info and remove RawInfo.
	Info         *Info              `bencode:"-"`
	RawInfo      bencode.RawMessage `bencode:"info" json:"-"`
	Announce     string             `bencode:"announce"`
	AnnounceList [][]string         `bencode:"announce-list"`
	CreationDate int64              `bencode:"creation date"`
	Comment      string             `bencode:"comment"`
	CreatedBy    string             `bencode:"created by"`
	Encoding     string             `bencode:"encoding"`
}

// New decodes a .torrent file from r.
func New(r io.Reader) (*MetaInfo, error) {
	var mi MetaInfo
	if err := bencode.NewDecoder(r).Decode(&mi); err != nil {
		return nil, err
	}
	if len(mi.RawInfo) == 0 {
		return nil, errors.New("metainfo: no info dict in torrent file")
	}
	info, err := NewInfo(mi.RawInfo)
	mi.Info = info
	return &mi, err
}
