package domain

// Variant is the medium-specific block of a record as a closed set of cases:
// MovieVariant or SeriesVariant. The stored record keeps the flat fields so
// that records breaking the advisory invariants still round-trip; Variant is
// how the editor and the views read and write that block.
type Variant interface {
	isVariant()
}

// MovieVariant is a single-part work: watched or not.
type MovieVariant struct {
	Watched bool
}

// SeriesVariant is a TvShow or Anime with its progress.
type SeriesVariant struct {
	Medium   Medium
	Ongoing  bool
	Status   WatchStatus
	Position *WatchPosition
}

func (MovieVariant) isVariant()  {}
func (SeriesVariant) isVariant() {}

// Variant returns the medium-specific block. For a movie any status other
// than Exhausted reads as not watched.
func (w WorkItem) Variant() Variant {
	if w.Medium.MultiPart() {
		return SeriesVariant{
			Medium:   w.Medium,
			Ongoing:  w.Ongoing,
			Status:   w.WatchData.Status,
			Position: w.Clone().WatchData.Position,
		}
	}
	return MovieVariant{Watched: w.WatchData.Status == Exhausted}
}

// SetVariant replaces the medium-specific block wholesale.
func (w *WorkItem) SetVariant(v Variant) {
	switch v := v.(type) {
	case MovieVariant:
		w.Medium = Movie
		w.Ongoing = false
		status := Virgin
		if v.Watched {
			status = Exhausted
		}
		w.WatchData = WatchData{Status: status}
	case SeriesVariant:
		w.Medium = v.Medium
		w.Ongoing = v.Ongoing
		w.SetWatch(v.Status, v.Position)
	}
}

// DefaultVariant is the fresh block a medium switch starts from.
func DefaultVariant(m Medium) Variant {
	if m.MultiPart() {
		return SeriesVariant{Medium: m, Status: Virgin}
	}
	return MovieVariant{}
}
