package notify

import (
	"fmt"
	"net/mail"
)

// mailAddress 从 `"Name" <addr>` 中取出纯地址
func mailAddress(s string) (string, error) {
	a, err := mail.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("invalid mail address %q: %w", s, err)
	}
	return a.Address, nil
}
