// Package frames provides constructors for the STOMP frames exchanged by
// clients and the broker.
package frames

import (
	"bytes"

	"github.com/stompd/stomp"
)

// Empty is an empty STOMP frame and is provided as a convenience.
var Empty stomp.Frame

// Connect creates a CONNECT frame using the given credentials.
func Connect(login, passcode string) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandConnect),
		Headers: stomp.NewHeaders(
			stomp.HeaderLogin, login,
			stomp.HeaderPasscode, passcode,
		),
	}
}

// Connected creates a CONNECTED frame advertising the protocol version.
func Connected(version string) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandConnected),
		Headers: stomp.NewHeaders(stomp.HeaderVersion, version),
	}
}

// Disconnect creates a DISCONNECT frame.  receipt is optional.
func Disconnect(receipt string) stomp.Frame {
	f := stomp.Frame{
		Command: string(stomp.CommandDisconnect),
	}
	if receipt != "" {
		f.Headers.Set(stomp.HeaderReceipt, receipt)
	}
	return f
}

// Error creates an ERROR frame from an existing frame.
//
// message becomes the message header in the returned frame and should
// be a short description of the error.
//
// If present body becomes the trailing portion of the frame body.
//
// If frame is a non-empty frame it is inserted into the returned frame's
// body for context, and any receipt header it carries is echoed back as
// receipt-id so errors correlate the same way receipts do.
func Error(message string, body string, frame stomp.Frame) stomp.Frame {
	f := stomp.Frame{
		Command: string(stomp.CommandError),
		Headers: stomp.NewHeaders(stomp.HeaderMessage, message),
	}
	if receipt := frame.Headers.Get(stomp.HeaderReceipt); receipt != "" {
		f.Headers.Set(stomp.HeaderReceiptID, receipt)
	}
	buf := &bytes.Buffer{}
	if !frame.Empty() {
		// The embedded frame's terminator is stripped or it would end the
		// ERROR frame early on the wire.
		buf.WriteString("The frame\n----\n")
		buf.Write(bytes.TrimSuffix(frame.Bytes(), []byte{0x00}))
		buf.WriteString("\n----\n")
	}
	if body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	if buf.Len() > 0 {
		f.Body = buf.Bytes()
	}
	return f
}

// Message creates a MESSAGE frame carrying body for dest.
//
// The subscription header is not set here; the registry stamps it per
// recipient during fan-out.
func Message(dest, messageID string, body []byte) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandMessage),
		Headers: stomp.NewHeaders(
			stomp.HeaderDestination, dest,
			stomp.HeaderMessageID, messageID,
		),
		Body: body,
	}
}

// Receipt creates a RECEIPT frame answering the given receipt id.
func Receipt(receiptID string) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandReceipt),
		Headers: stomp.NewHeaders(stomp.HeaderReceiptID, receiptID),
	}
}

// Send creates a SEND frame.
//
// dest is required by STOMP protocol but not enforced by this function.
func Send(dest string, body []byte) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandSend),
		Headers: stomp.NewHeaders(stomp.HeaderDestination, dest),
		Body:    body,
	}
}

// SendString creates a SEND frame from a string message body.
func SendString(dest string, body string) stomp.Frame {
	return Send(dest, []byte(body))
}

// Subscribe creates a SUBSCRIBE frame.
//
// dest and id are required by the broker but not enforced by this function.
func Subscribe(dest, id string) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandSubscribe),
		Headers: stomp.NewHeaders(
			stomp.HeaderDestination, dest,
			stomp.HeaderID, id,
		),
	}
}

// Unsubscribe creates an UNSUBSCRIBE frame for the given subscription id.
func Unsubscribe(id string) stomp.Frame {
	return stomp.Frame{
		Command: string(stomp.CommandUnsubscribe),
		Headers: stomp.NewHeaders(stomp.HeaderID, id),
	}
}
