package pkg

const (
	// KotTopic carries KOT lifecycle events for kitchen displays and printers.
	KotTopic = "kitchen.kots"
	// PrintJobTopic prefixes print jobs; the restaurant id is appended so a
	// print bridge only receives jobs for its own devices.
	PrintJobTopic = "print.jobs"
	// MenuItemsTopic delivers menu catalog change notifications.
	MenuItemsTopic = "menu.items"
)

// PrintJobSubject returns the subject a print bridge for the restaurant listens on.
func PrintJobSubject(restaurantID string) string {
	if restaurantID == "" {
		return PrintJobTopic
	}
	return PrintJobTopic + "." + restaurantID
}
