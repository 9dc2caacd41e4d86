package email

import (
	"fmt"
	"net/mail"
)

// Sender is the verified identity every email goes out from.
type Sender struct {
	Address string
	Name    string
}

func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	return (&mail.Address{Name: s.Name, Address: s.Address}).String()
}

// Validate checks that the sender address parses.
func (s Sender) Validate() error {
	if _, err := mail.ParseAddress(s.Address); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", s.Address, err)
	}
	return nil
}
