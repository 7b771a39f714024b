// Package broker contains a STOMP broker implementation.
//
// The broker accepts connections over TCP or WebSocket, authenticates users
// with a mutually exclusive single-session policy, and fans SEND frames out
// to channel subscribers as MESSAGE frames stamped with each recipient's
// subscription id.
//
// TODO
//
// Heart-beating.  Idle connections are never timed out.
//
// Queues.  All destinations are pure broadcasts; allow destinations to
// become round-robin work queues.
package broker
