package export

// WeekGrid is a weekly timetable laid out as time slots by day columns.
// Cells[slot][day] holds the text shown in that cell; empty means free.
type WeekGrid struct {
	Days  []string
	Slots []string
	Cells [][]string
	// Flagged marks cells that hold a clash.
	Flagged [][]bool
}

// NewWeekGrid allocates an empty grid.
func NewWeekGrid(days, slots []string) WeekGrid {
	grid := WeekGrid{
		Days:    append([]string(nil), days...),
		Slots:   append([]string(nil), slots...),
		Cells:   make([][]string, len(slots)),
		Flagged: make([][]bool, len(slots)),
	}
	for i := range slots {
		grid.Cells[i] = make([]string, len(days))
		grid.Flagged[i] = make([]bool, len(days))
	}
	return grid
}

// Put appends text to a cell, joining multiple entries with " / ".
func (g WeekGrid) Put(slot, day int, text string, flagged bool) {
	if slot < 0 || slot >= len(g.Slots) || day < 0 || day >= len(g.Days) {
		return
	}
	if g.Cells[slot][day] == "" {
		g.Cells[slot][day] = text
	} else {
		g.Cells[slot][day] += " / " + text
	}
	if flagged {
		g.Flagged[slot][day] = true
	}
}
