package domain

import "strings"

// DefaultUsername is used when a caller does not identify themselves.
const DefaultUsername = "guest"

// User owns tickets. Users are created implicitly the first time a ticket is filed.
type User struct {
	Username string `json:"username"`
}

// NormalizeUsername trims the name and substitutes DefaultUsername for blanks.
func NormalizeUsername(username string) string {
	if trimmed := strings.TrimSpace(username); trimmed != "" {
		return trimmed
	}
	return DefaultUsername
}
