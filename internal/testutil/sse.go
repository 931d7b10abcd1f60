package testutil

import "strings"

// SSEEvent is one parsed server-sent event frame.
type SSEEvent struct {
	Name string
	Data string
}

// ParseSSE splits a raw SSE response body into frames. Multi-line data
// fields are joined with newlines, per the SSE format.
func ParseSSE(body string) []SSEEvent {
	var events []SSEEvent
	for _, frame := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(frame) == "" {
			continue
		}
		var ev SSEEvent
		var data []string
		for _, line := range strings.Split(frame, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			}
		}
		ev.Data = strings.Join(data, "\n")
		events = append(events, ev)
	}
	return events
}
