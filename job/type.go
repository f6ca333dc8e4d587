package job

import "fmt"

// Type enumerates the kinds of ComfyUI generation jobs the scheduler
// drives. It replaces the original implementation's ad hoc
// string.lower()/upper() dispatch (see REDESIGN FLAGS) with a single
// conversion table below.
type Type uint8

const (
	// TypeUnknown is the zero value, never valid on a stored Job.
	TypeUnknown Type = iota
	TypeT2I
	TypeT2V
	TypeSpeech
	TypeAudio
	Type3D
)

type typeInfo struct {
	wire   string // canonical uppercase form used in config_name and YAML
	subdir string // lowercase processing/finished subdirectory name
}

var typeTable = map[Type]typeInfo{
	TypeT2I:    {"T2I", "t2i"},
	TypeT2V:    {"T2V", "t2v"},
	TypeSpeech: {"SPEECH", "speech"},
	TypeAudio:  {"AUDIO", "audio"},
	Type3D:     {"3D", "3d"},
}

var typeByWire = func() map[string]Type {
	m := make(map[string]Type, len(typeTable))
	for t, info := range typeTable {
		m[info.wire] = t
	}
	return m
}()

// ParseType maps the uppercase filename/schema token (e.g. "T2I") to a
// Type. An error is returned for any other value.
func ParseType(s string) (Type, error) {
	t, ok := typeByWire[s]
	if !ok {
		return TypeUnknown, fmt.Errorf("unknown job type: %s", s)
	}
	return t, nil
}

// String returns the canonical uppercase wire form (e.g. "T2I", "3D").
func (t Type) String() string {
	if info, ok := typeTable[t]; ok {
		return info.wire
	}
	return "UNKNOWN"
}

// LowerSubdir returns the lowercase processing/finished subdirectory name
// for this type (e.g. "t2i").
func (t Type) LowerSubdir() string {
	if info, ok := typeTable[t]; ok {
		return info.subdir
	}
	return ""
}

// UpperSubdir returns the uppercase subdirectory name, matching the
// on-disk layout some producers use (spec.md §4.3 search order).
func (t Type) UpperSubdir() string {
	return t.String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
