package stream

import (
	"fmt"
	"slices"
)

// PlaylistCapacity is the number of slots in a playlist.
const PlaylistCapacity = 40

// Playlist is an ordered list of image references. An empty string is an empty slot and is
// skipped while streaming.
type Playlist []string

// NewPlaylist returns a playlist with PlaylistCapacity empty slots.
func NewPlaylist() Playlist {
	return make(Playlist, PlaylistCapacity)
}

// Set puts ref into slot i.
func (p Playlist) Set(i int, ref string) error {
	if i < 0 || i >= len(p) {
		return fmt.Errorf("stream: playlist slot %d out of range [0, %d)", i, len(p))
	}
	p[i] = ref
	return nil
}

// Remove empties slot i.
func (p Playlist) Remove(i int) error {
	return p.Set(i, "")
}

// Fill puts refs into consecutive slots starting at the first one and returns how many fit.
func (p Playlist) Fill(refs []string) int {
	return copy(p, refs)
}

// Len returns the number of non-empty slots.
func (p Playlist) Len() (n int) {
	for _, ref := range p {
		if ref != "" {
			n++
		}
	}
	return
}

// Snapshot returns a copy that is not affected by later edits.
func (p Playlist) Snapshot() Playlist {
	return slices.Clone(p)
}
