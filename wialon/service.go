package wialon

import "strings"

// ServiceName converts a flat method name such as core_search_items into the
// service name core/search_items. Only the first underscore separates the
// group from the method; unit_group_update_units is the one exception.
// Names that already contain a slash are returned unchanged.
func ServiceName(flat string) string {
	flat = strings.TrimSpace(flat)
	if flat == "" || strings.Contains(flat, "/") {
		return flat
	}
	if flat == "unit_group_update_units" {
		return SvcUpdateGroupUnits
	}
	return strings.Replace(flat, "_", "/", 1)
}
