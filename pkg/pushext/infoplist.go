package pushext

const backgroundModesKey = "UIBackgroundModes"

// requiredBackgroundModes lists the UIBackgroundModes entries the extension
// needs for silent push delivery.
var requiredBackgroundModes = []string{"remote-notification"}

// EnsureBackgroundModes makes sure every required background mode is present
// in the manifest's UIBackgroundModes list. A missing or malformed list is
// replaced with an empty one first. Modes already present are not appended
// again, so repeated application is idempotent.
func EnsureBackgroundModes(info map[string]interface{}) {
	modes, ok := info[backgroundModesKey].([]interface{})
	if !ok {
		modes = []interface{}{}
	}
	for _, required := range requiredBackgroundModes {
		if !containsString(modes, required) {
			modes = append(modes, required)
		}
	}
	info[backgroundModesKey] = modes
}

func containsString(list []interface{}, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}
