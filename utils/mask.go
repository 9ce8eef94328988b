package utils

// MaskName hides the middle of a bidder's display name for public bid
// history: "John Doe" -> "Jo***e". Names of three characters or fewer
// are rendered as the whole name followed by the mask.
func MaskName(name string) string {
	runes := []rune(name)
	if len(runes) <= 3 {
		return name + "***"
	}
	return string(runes[:2]) + "***" + string(runes[len(runes)-1:])
}
