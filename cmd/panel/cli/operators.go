package cli

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashOperator returns the "user:hash" entry accepted by OPERATORS.
func HashOperator(username, password string, cost int) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.ContainsAny(username, ":,") {
		return "", errors.New("operator name must be non-empty and free of ':' and ','")
	}
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return username + ":" + string(hash), nil
}
