package models

import "fmt"

// BlobKey is the storage key of the config blob for a slot of an owner's
// entry: "{owner}_{slot}".
func BlobKey(ownerID string, slot int) string {
	return fmt.Sprintf("%s_%d", ownerID, slot)
}
