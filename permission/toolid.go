package permission

import "strings"

// TargetSeparator joins a gateway target name and a tool name.
const TargetSeparator = "___"

// ToolID is a tool identifier split into its gateway target prefix and the
// bare tool name. Target is empty when the identifier had no prefix.
type ToolID struct {
	Target string
	Name   string
}

// ParseToolID splits raw at the last occurrence of TargetSeparator.
// "dbtarget___retrieve_doc" yields {Target: "dbtarget", Name: "retrieve_doc"};
// "retrieve_doc" yields {Name: "retrieve_doc"}.
func ParseToolID(raw string) ToolID {
	i := strings.LastIndex(raw, TargetSeparator)
	if i < 0 {
		return ToolID{Name: raw}
	}
	return ToolID{Target: raw[:i], Name: raw[i+len(TargetSeparator):]}
}

// String reassembles the identifier in its prefixed form.
func (t ToolID) String() string {
	if t.Target == "" {
		return t.Name
	}
	return t.Target + TargetSeparator + t.Name
}
