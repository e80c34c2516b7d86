package core

// Frame is one encoded push message for a UI client.
type Frame []byte

// PushConn is the outbound side of a UI push socket. TrySend never blocks;
// a full queue is reported so the caller can apply its backpressure policy.
type PushConn interface {
	TrySend(Frame) error
	Close()
}
