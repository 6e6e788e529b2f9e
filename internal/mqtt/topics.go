package mqtt

import "fmt"

// TopicOutcome carries one finished request: {prefix}/outcome/{requestId}.
func TopicOutcome(prefix, requestID string) string {
	return fmt.Sprintf("%s/outcome/%s", prefix, requestID)
}

// TopicCapabilities is retained so late subscribers see the last snapshot.
func TopicCapabilities(prefix string) string {
	return fmt.Sprintf("%s/capabilities", prefix)
}
