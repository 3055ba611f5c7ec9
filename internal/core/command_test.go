package core

import (
	"encoding/json"
	"testing"
)

func TestCommandJSONShape(t *testing.T) {
	raw := `{"pattern":"fade","strobe":true,"color_list":["#ff0000","#0000ff"],"speed":20}`
	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.Pattern != "fade" || !cmd.Strobe || len(cmd.ColorList) != 2 || cmd.Speed != 20 {
		t.Errorf("unexpected command: %+v", cmd)
	}

	out, err := json.Marshal(Command{Pattern: "off"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"pattern":"off"}` {
		t.Errorf("zero-valued optional fields should be omitted, got %s", out)
	}
}

func TestCommandString(t *testing.T) {
	cmd := Command{
		Pattern:   "scroll",
		Strobe:    true,
		ColorList: []string{"#ff0000", "#00ff00"},
		Speed:     12.5,
	}
	want := "pattern=scroll strobe color_list=#ff0000,#00ff00 speed=12.5"
	if got := cmd.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if got := (Command{Pattern: "off"}).String(); got != "pattern=off" {
		t.Errorf("String() = %q, want %q", got, "pattern=off")
	}
}
