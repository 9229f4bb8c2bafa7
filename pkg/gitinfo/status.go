package gitinfo

import "strings"

// Status summarizes `git status --porcelain=v1 -z`.
type Status struct {
	Dirty    bool // Any entry at all
	Modified bool // Unstaged changes or untracked files
	Staged   bool // Changes in the index
}

// ParseStatus reads NUL separated porcelain v1 records. A rename or copy
// record is followed by an extra field holding the original path.
func ParseStatus(out string) Status {
	var st Status

	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		rec := fields[i]
		if len(rec) < 3 {
			continue
		}
		x, y := rec[0], rec[1]

		st.Dirty = true
		if x == '?' && y == '?' {
			st.Modified = true
			continue
		}
		switch y {
		case 'M', 'R', 'T':
			st.Modified = true
		}
		switch x {
		case 'A', 'M', 'D', 'R', 'T':
			st.Staged = true
		}
		if x == 'R' || x == 'C' || y == 'R' || y == 'C' {
			i++
		}
	}

	return st
}
