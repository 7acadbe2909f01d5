package server

import "github.com/chatrelay/go-chat-relay/internal/message"

// taskKind tags the work items queued to the central dispatcher.
type taskKind uint8

const (
	taskBroadcast taskKind = iota + 1
	taskSendErr
)

// task is one unit of dispatcher work. Broadcast carries the source address
// (excluded from fan-out), the sender identity and the payload; sendErr
// carries the destination address and the protocol error.
type task struct {
	kind taskKind

	from string
	user message.User
	data message.Data

	to   string
	serr message.ServerErr
}

func broadcastTask(from string, user message.User, data message.Data) task {
	return task{kind: taskBroadcast, from: from, user: user, data: data}
}

func sendErrTask(to string, serr message.ServerErr) task {
	return task{kind: taskSendErr, to: to, serr: serr}
}
