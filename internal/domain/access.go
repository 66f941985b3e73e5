package domain

import "strings"

// CanEdit reports whether identity may rewrite doc in place.
//
// Only the owner and the single configured admin qualify. Anonymous visitors
// never do. Emails are compared case-insensitively; an empty admin email
// disables the admin path.
func CanEdit(doc *ShareDocument, identity *Identity, adminEmail string) bool {
	if doc == nil || identity == nil || identity.Email == "" {
		return false
	}
	if strings.EqualFold(identity.Email, doc.OwnerEmail) {
		return true
	}
	return adminEmail != "" && strings.EqualFold(identity.Email, adminEmail)
}
