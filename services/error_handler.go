package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kasmail/kasmail-server/global"
)

// handleError extracts the error description of a JSON error body ({"error": ...} or {"detail": ...})
func handleError(body []byte) error {
	var errBody map[string]interface{}
	uErr := json.Unmarshal(body, &errBody)
	if uErr != nil {
		global.Logger.Log(uErr, "Failed to unmarshal response")
		return uErr
	}
	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := errBody[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return errors.New(s)
			}
			return fmt.Errorf("%v", v)
		}
	}
	return nil
}
