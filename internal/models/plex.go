package models

import "fmt"

// ServerInfo identifies a Plex server.
type ServerInfo struct {
	FriendlyName string `json:"friendlyName"`
	Version      string `json:"version"`
}

// Section is a Plex library section.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Root  string `json:"root"`
}

func (s Section) String() string {
	return fmt.Sprintf("[%s] %s (%s)", s.ID, s.Title, s.Type)
}

// Playlist is a Plex audio playlist.
type Playlist struct {
	RatingKey string `json:"ratingKey"`
	Title     string `json:"title"`
	LeafCount int    `json:"leafCount"`
}
