package importer

import "fmt"

// Mode selects how imported epics and tickets interact with
// same-titled entities already in the target project.
type Mode int

const (
	// ModeCreateNew always inserts new epics, disambiguating title
	// collisions with a "(from <exportedBy>)" suffix.
	ModeCreateNew Mode = iota
	// ModeReplace reuses a same-title epic and deletes its existing
	// tickets before inserting the imported ones.
	ModeReplace
	// ModeMerge reuses a same-title epic and updates same-title
	// tickets in place instead of inserting duplicates.
	ModeMerge
)

// ParseMode converts the CLI spelling of a conflict mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "create-new":
		return ModeCreateNew, nil
	case "replace":
		return ModeReplace, nil
	case "merge":
		return ModeMerge, nil
	default:
		return 0, fmt.Errorf("unknown conflict mode %q (want create-new, replace, or merge)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeCreateNew:
		return "create-new"
	case ModeReplace:
		return "replace"
	case ModeMerge:
		return "merge"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
