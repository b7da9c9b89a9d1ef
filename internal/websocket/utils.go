// internal/websocket/utils.go
package websocket

import (
	"encoding/json"
	"fmt"
)

// DecodeData converts a decoded message payload into target by re-marshaling it.
func DecodeData(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
