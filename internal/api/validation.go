package api

import "regexp"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// validEmail checks the email shape without resolving anything.
func validEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// validPassword enforces the minimum password length.
func validPassword(password string) bool {
	return len(password) >= 6 && len(password) <= 72
}

// validUsername enforces the username length bounds. An empty username is
// allowed, the field is optional.
func validUsername(username string) bool {
	if username == "" {
		return true
	}
	return len(username) >= 3 && len(username) <= 50
}
