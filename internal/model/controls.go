package model

// ControlItem is a single entry of the "controls" list pushed by the
// virtual-tabletop client (tokens, buildings, units under a character's
// control).
type ControlItem struct {
	Num  int64  `json:"num"`
	Name string `json:"name"`
	Type string `json:"type"`
	Info string `json:"info"`
}

// UpdateControlsRequest is the body of POST /api/character/controls.
type UpdateControlsRequest struct {
	CharacterName string        `json:"character_name"`
	Game          string        `json:"game"`
	Controls      []ControlItem `json:"controls"`
}
