package dto

import "github.com/hugh/metricdeck/internal/api/validation"

type LoginRequest struct {
	Passcode string `json:"passcode"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Passcode == "" {
		errors["passcode"] = "Passcode is required"
	}

	return errors
}

type MagicLinkRequest struct {
	Email string `json:"email"`
}

func (r MagicLinkRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email is not valid"
	}

	return errors
}

type RedeemLinkRequest struct {
	Token string `json:"token"`
}

func (r RedeemLinkRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Token == "" {
		errors["token"] = "Token is required"
	}

	return errors
}

type CreatePasscodeRequest struct {
	Name string `json:"name"`
}

type UserDTO struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type LoginResponse struct {
	User UserDTO `json:"user"`
}

// PasscodeCreatedResponse carries the plaintext code. It is returned exactly
// once, at creation; only the hash and hint are stored.
type PasscodeCreatedResponse struct {
	ID       string `json:"id"`
	Passcode string `json:"passcode"`
	Hint     string `json:"hint"`
	Name     string `json:"name,omitempty"`
}
