package config

import "encoding/json"

// Key bindings
const (
	KeyActionQuit       = "quit"
	KeyActionToggleHelp = "toggleHelp"
	KeyActionRefresh    = "refresh"
	KeyActionScrollDown = "scrollDown"
	KeyActionScrollUp   = "scrollUp"
	KeyActionSelect     = "select"
	KeyActionBack       = "back"
)

type KeyMap struct {
	Quit       []string `mapstructure:"quit" json:"quit" jsonschema:"description=Exit the dashboard,default=q"`
	ToggleHelp []string `mapstructure:"toggleHelp" json:"toggleHelp" jsonschema:"description=Toggle help display,default=?"`
	Refresh    []string `mapstructure:"refresh" json:"refresh" jsonschema:"description=Reload templates and metrics,default=r"`
	ScrollDown []string `mapstructure:"scrollDown" json:"scrollDown" jsonschema:"description=Move down the template list,default=j,down"`
	ScrollUp   []string `mapstructure:"scrollUp" json:"scrollUp" jsonschema:"description=Move up the template list,default=k,up"`
	Select     []string `mapstructure:"select" json:"select" jsonschema:"description=Open the selected template,default=enter"`
	Back       []string `mapstructure:"back" json:"back" jsonschema:"description=Return to the template list,default=esc"`

	keyCache map[string][]string
}

// Get key bindings for an action
func (k *KeyMap) GetKeys(action string) []string {
	// Initialize cache if needed
	if k.keyCache == nil {
		k.keyCache = make(map[string][]string)
		jsonBytes, err := json.Marshal(k)
		if err != nil {
			return nil
		}
		if err := json.Unmarshal(jsonBytes, &k.keyCache); err != nil {
			return nil
		}
	}

	return k.keyCache[action]
}
