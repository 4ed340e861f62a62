package domain

import "fmt"

// Reference is a single external news result used as comparison material.
type Reference struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Format renders the reference the way it appears in the prompt.
func (r Reference) Format() string {
	return fmt.Sprintf("%s - %s (%s)", r.Title, r.Snippet, r.Link)
}
