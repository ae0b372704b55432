// Package policy holds the authorization decisions made at the web boundary.
package policy

import "github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"

// CanRegisterUsers reports whether who may create new accounts. Only
// administrators can.
func CanRegisterUsers(who model.Identity) bool {
	return !who.Anonymous() && who.Role == model.RoleAdmin
}

// CanBook reports whether who may submit reservations.
func CanBook(who model.Identity) bool {
	return !who.Anonymous()
}
