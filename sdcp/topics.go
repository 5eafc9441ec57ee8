package sdcp

// Topic patterns this controller exchanges with a connected printer. All
// four are suffixed with the printer's mainboard id; none ever carries a
// wildcard.
const (
	requestPrefix    = "/sdcp/request/"
	responsePrefix   = "/sdcp/response/"
	statusPrefix     = "/sdcp/status/"
	attributesPrefix = "/sdcp/attributes/"
)

func RequestTopic(mainboardID string) string    { return requestPrefix + mainboardID }
func ResponseTopic(mainboardID string) string   { return responsePrefix + mainboardID }
func StatusTopic(mainboardID string) string     { return statusPrefix + mainboardID }
func AttributesTopic(mainboardID string) string { return attributesPrefix + mainboardID }
