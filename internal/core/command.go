package core

import (
	"fmt"
	"strings"
)

// Command is a lighting configuration request. The same JSON shape arrives
// from the Webcandy server, MQTT command topics, schedule entries and the
// offline controller flags.
type Command struct {
	Pattern   string   `json:"pattern"`
	Strobe    bool     `json:"strobe,omitempty"`
	Color     string   `json:"color,omitempty"`
	ColorList []string `json:"color_list,omitempty"`
	Speed     float64  `json:"speed,omitempty"`
}

// String renders the command for logs.
func (c Command) String() string {
	parts := []string{"pattern=" + c.Pattern}
	if c.Strobe {
		parts = append(parts, "strobe")
	}
	if c.Color != "" {
		parts = append(parts, "color="+c.Color)
	}
	if len(c.ColorList) > 0 {
		parts = append(parts, "color_list="+strings.Join(c.ColorList, ","))
	}
	if c.Speed != 0 {
		parts = append(parts, fmt.Sprintf("speed=%g", c.Speed))
	}
	return strings.Join(parts, " ")
}

// CommandChannel is the single channel the agent listens to for commands,
// whichever ingress they arrive from.
type CommandChannel chan Command
