package invoice

// Canned description keys offered when no description is typed
const (
	DescriptionTeaching     = "teaching"
	DescriptionWebsiteBuild = "website build"
	DescriptionAutomation   = "automation"
)

var cannedDescriptions = map[string]string{
	DescriptionTeaching:     "Programming and software development training services",
	DescriptionWebsiteBuild: "Website design and development services",
	DescriptionAutomation:   "Software automation and scripting services",
}

// DescriptionKeys returns the canned description keys in menu order
func DescriptionKeys() []string {
	return []string{DescriptionTeaching, DescriptionWebsiteBuild, DescriptionAutomation}
}

// CannedDescription returns the fixed text for a menu key
func CannedDescription(key string) (string, bool) {
	text, ok := cannedDescriptions[key]
	return text, ok
}
