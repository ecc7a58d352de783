// package models defines the value types shared by the catalog client and the playlist pipeline
package models

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	artistURIPrefix = "spotify:artist:"
	artistURLHost   = "open.spotify.com"
)

// ArtistID is an opaque catalog identifier naming a single artist.
type ArtistID string

// ParseArtistID normalizes a bare ID, a spotify:artist: URI or an open.spotify.com artist URL to the bare ID.
func ParseArtistID(s string) (ArtistID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty artist identifier")
	}

	if rest, ok := strings.CutPrefix(s, artistURIPrefix); ok {
		return validID(rest, s)
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil || u.Host != artistURLHost {
			return "", fmt.Errorf("not a Spotify artist URL: %s", s)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		// Localized links look like /intl-de/artist/<id>
		if len(parts) >= 2 && parts[len(parts)-2] == "artist" {
			return validID(parts[len(parts)-1], s)
		}
		return "", fmt.Errorf("not a Spotify artist URL: %s", s)
	}

	if strings.Contains(s, ":") {
		return "", fmt.Errorf("not an artist identifier: %s", s)
	}
	return validID(s, s)
}

func validID(id, raw string) (ArtistID, error) {
	if id == "" || strings.ContainsAny(id, ":/?# ") {
		return "", fmt.Errorf("malformed artist identifier: %s", raw)
	}
	return ArtistID(id), nil
}

// URI returns the catalog URI for the artist.
func (a ArtistID) URI() string { return artistURIPrefix + string(a) }

func (a ArtistID) String() string { return string(a) }

// ArtistRef is a credited artist on an album or track.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album is an album listed for an artist together with its credited artists.
type Album struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Group   string      `json:"album_group,omitempty"`
	Artists []ArtistRef `json:"artists"`
}

// AlbumPage is one page of an artist's album listing.
type AlbumPage struct {
	Albums  []Album
	HasMore bool
}

// TrackRef is a track found during discovery, before enrichment.
type TrackRef struct {
	ID      string      `json:"id"`
	URI     string      `json:"uri"`
	Name    string      `json:"name"`
	Artists []ArtistRef `json:"artists"`
}

// TrackPage is one page of an album's track listing.
type TrackPage struct {
	Tracks  []TrackRef
	HasMore bool
}

// Credits reports whether artist is one of the track's credited artists.
func (t TrackRef) Credits(artist ArtistID) bool {
	return creditName(t.Artists, artist) != nil
}

// CreditName returns the credited name of artist on the album, if any.
func (a Album) CreditName(artist ArtistID) (string, bool) {
	if ref := creditName(a.Artists, artist); ref != nil {
		return ref.Name, true
	}
	return "", false
}

// CreditName returns the credited name of artist on the track, if any.
func (t TrackRef) CreditName(artist ArtistID) (string, bool) {
	if ref := creditName(t.Artists, artist); ref != nil {
		return ref.Name, true
	}
	return "", false
}

func creditName(refs []ArtistRef, artist ArtistID) *ArtistRef {
	for i := range refs {
		if refs[i].ID == string(artist) {
			return &refs[i]
		}
	}
	return nil
}

// Track is an enriched track and the unit that is ranked and selected.
type Track struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	Popularity int    `json:"popularity"`            // 0 to 100
	LinkedFrom string `json:"linked_from,omitempty"` // Requested URI when the catalog relinked the track for the market
}

// URIs returns the URIs of tracks in order.
func URIs(tracks []Track) []string {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	return uris
}

// ArtistCandidate is an artist search result offered for selection.
type ArtistCandidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
	URL        string   `json:"url"`
}

// PlaylistSpec describes a playlist to create. TrackURIs are added after creation in order.
type PlaylistSpec struct {
	OwnerID     string   `json:"owner_id"`
	Title       string   `json:"title"`
	Public      bool     `json:"public"`
	Description string   `json:"description"`
	TrackURIs   []string `json:"track_uris"`
}

// Playlist is the handle of a playlist on the remote service.
type Playlist struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Public bool   `json:"public"`
}

// User is the authenticated user's profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
}
