package experiment

import "strings"

// Section is a playable or displayable stimulus referenced by a round.
//
// The board fields (Turned through Timestamp) are render state for the
// matching pairs view only. They are never sent back to the backend.
type Section struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Label string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
	Group string `json:"group,omitempty"`

	// Matching pairs board state.
	Turned        bool   `json:"turned,omitempty"`
	Seen          bool   `json:"seen,omitempty"`
	Inactive      bool   `json:"inactive,omitempty"`
	NoEvents      bool   `json:"noevents,omitempty"`
	MatchClass    string `json:"matchClass,omitempty"`
	BoardPosition int    `json:"boardposition,omitempty"`
	Timestamp     int64  `json:"timestamp,omitempty"`
}

// ResolveURL returns the absolute stimulus URL, prefixing mediaRoot when the
// section URL is relative.
func (s Section) ResolveURL(mediaRoot string) string {
	if s.URL == "" || mediaRoot == "" {
		return s.URL
	}
	if strings.HasPrefix(s.URL, "http://") || strings.HasPrefix(s.URL, "https://") {
		return s.URL
	}
	return strings.TrimSuffix(mediaRoot, "/") + "/" + strings.TrimPrefix(s.URL, "/")
}
