package base

// categoryOrder fixes the rendering order of base-knowledge categories.
var categoryOrder = []string{
	"identity", "relationship", "location", "preference", "history", "misc",
}
