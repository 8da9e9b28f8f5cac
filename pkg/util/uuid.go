package util

import (
	"encoding/json"

	"github.com/google/uuid"
)

// fairdataNamespace scopes the name based ids produced here
var fairdataNamespace = uuid.NewMD5(uuid.NameSpaceURL, []byte("https://aireadi.org/fairdata"))

// HashUUID is a stable id for any json encodable value, empty if it cannot be encoded
func HashUUID(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return uuid.NewMD5(fairdataNamespace, raw).String()
}

// RunID is a fresh random id for one batch run
func RunID() string {
	return uuid.NewString()
}
