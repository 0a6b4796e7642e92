package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PreviewLength is the number of characters of a chat message kept in
// an admin notification.
const PreviewLength = 50

// Truncate shortens s to max runes and appends an ellipsis when it cut anything.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func MessagePreview(body string) string {
	return Truncate(body, PreviewLength)
}

// IsStaffName reports whether a display name looks like an admin or support
// account. Such senders never raise admin notifications even when their
// account is typed as an installer.
func IsStaffName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "admin") || strings.Contains(lower, "support")
}

func NewMessageTitle(senderName string) string {
	return fmt.Sprintf("New message from %s", senderName)
}

func PaymentRequestTitle(installerName string) string {
	return fmt.Sprintf("Payment request from %s", installerName)
}

func PaymentRequestMessage(amount float64, currency, reference string) string {
	msg := fmt.Sprintf("Requested %s %.2f", strings.ToUpper(currency), amount)
	if reference != "" {
		msg += fmt.Sprintf(" (ref %s)", reference)
	}
	return msg
}

func PaymentCommentTitle(authorName string) string {
	return fmt.Sprintf("New comment from %s", authorName)
}

func SerialSubmissionTitle(installerName string) string {
	return fmt.Sprintf("Serial number submitted by %s", installerName)
}

func SerialSubmissionMessage(serials []string) string {
	switch len(serials) {
	case 0:
		return "No serial numbers submitted"
	case 1:
		return fmt.Sprintf("Serial %s is waiting for review", serials[0])
	default:
		return fmt.Sprintf("%d serial numbers are waiting for review", len(serials))
	}
}

func NewInstallerTitle(installerName string) string {
	return fmt.Sprintf("New installer registered: %s", installerName)
}

func NewInstallerMessage(installerName, company string) string {
	if company == "" {
		return fmt.Sprintf("%s joined the loyalty program", installerName)
	}
	return fmt.Sprintf("%s from %s joined the loyalty program", installerName, company)
}
