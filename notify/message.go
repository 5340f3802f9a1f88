package notify

import (
	"fmt"
)

// Kind names the flow an email belongs to.
type Kind string

const (
	KindOTP   Kind = "otp"
	KindReset Kind = "reset"
)

// Message is one plain-text email waiting for delivery.
type Message struct {
	ID      string
	Kind    Kind
	From    string
	To      string
	Subject string
	Body    string
}

func otpMessage(from, to, otp string) Message {
	return Message{
		Kind:    KindOTP,
		From:    from,
		To:      to,
		Subject: "ECBARKO OTP",
		Body:    fmt.Sprintf("Your OTP code is: %s", otp),
	}
}

func resetMessage(from, to, link string) Message {
	return Message{
		Kind:    KindReset,
		From:    from,
		To:      to,
		Subject: "ECBARKO Email Reset",
		Body:    fmt.Sprintf("Your reset link: %s", link),
	}
}
