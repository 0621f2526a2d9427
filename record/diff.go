package record

// Changes partitions an incoming batch into three disjoint sets.
type Changes struct {
	// New contains records whose ID is unseen.
	New []Record
	// Changed contains records whose ID is known but whose fingerprint differs.
	Changed []Record
	// Unchanged contains records whose fingerprint matches the stored one.
	Unchanged []Record
}

// Diff classifies each record of batch against the previously stored
// fingerprints (ID -> fingerprint). It is a pure function: no side effects,
// no index access. Records must already be normalized.
//
// An empty or failed fetch is the caller's problem; Diff treats an empty
// batch as simply producing three empty sets.
func Diff(prev map[string]string, batch []Record) Changes {
	var c Changes
	for _, r := range batch {
		fp, known := prev[r.ID]
		switch {
		case !known:
			c.New = append(c.New, r)
		case fp != r.Fingerprint:
			c.Changed = append(c.Changed, r)
		default:
			c.Unchanged = append(c.Unchanged, r)
		}
	}
	return c
}
