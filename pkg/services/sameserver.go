package services

import "strings"

// IsSameServer reports whether the metadata store and a sync target are the
// same SQL Server instance. The comparison is case-insensitive because SQL
// Server instance names are. An empty identity on either side means the
// determination failed and the sync must take the cross-server path.
func IsSameServer(storeIdentity, targetIdentity string) bool {
	if storeIdentity == "" || targetIdentity == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(storeIdentity), strings.TrimSpace(targetIdentity))
}
