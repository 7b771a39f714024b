package stomp

// Command is a STOMP command and the first line of a STOMP frame.
type Command string

const (
	CommandConnect     Command = "CONNECT"
	CommandConnected           = "CONNECTED"
	CommandDisconnect          = "DISCONNECT"
	CommandError               = "ERROR"
	CommandMessage             = "MESSAGE"
	CommandReceipt             = "RECEIPT"
	CommandSend                = "SEND"
	CommandSubscribe           = "SUBSCRIBE"
	CommandUnsubscribe         = "UNSUBSCRIBE"
)
