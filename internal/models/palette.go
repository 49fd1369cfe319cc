package models

// PaletteEntry is a course colour in the dashboard's utility-class vocabulary.
type PaletteEntry struct {
	Name   string `json:"name"`
	Hex    string `json:"hex"`
	Bg     string `json:"bg"`
	Text   string `json:"text"`
	Check  string `json:"check"`
	Border string `json:"border"`
}

// Palette is a fixed, ordered set of course colours.
type Palette []PaletteEntry

func paletteEntry(name, hex string) PaletteEntry {
	return PaletteEntry{
		Name:   name,
		Hex:    hex,
		Bg:     "bg-" + name + "-500/15",
		Text:   "text-" + name + "-400",
		Check:  "checked:bg-" + name + "-500",
		Border: "border-" + name + "-500/30",
	}
}

// DefaultPalette returns a fresh copy of the built-in palette.
func DefaultPalette() Palette {
	return Palette{
		paletteEntry("emerald", "#10B981"),
		paletteEntry("orange", "#F97316"),
		paletteEntry("sky", "#0EA5E9"),
		paletteEntry("violet", "#8B5CF6"),
		paletteEntry("amber", "#F59E0B"),
		paletteEntry("rose", "#F43F5E"),
		paletteEntry("pink", "#EC4899"),
		paletteEntry("lime", "#84CC16"),
		paletteEntry("indigo", "#6366F1"),
	}
}

// ColorFor maps a course's preference index onto the palette, wrapping around.
func (p Palette) ColorFor(index int) PaletteEntry {
	if len(p) == 0 {
		return PaletteEntry{}
	}
	if index < 0 {
		index = -index
	}
	return p[index%len(p)]
}
