package model

// Preset is one named prompt fragment describing a desired sticker
// variation. Fragments are combined with the shared base prompt, one
// interactive turn per preset.
type Preset struct {
	Title  string `json:"title"`
	Prompt string `json:"content"`
}
