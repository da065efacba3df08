package realtime

import (
	"shiftmarket/internal/domain"
)

// Group is a logical bucket of cached data that dependent views refetch when
// it is invalidated.
type Group string

const (
	GroupNotifications Group = "notifications"
	GroupShifts        Group = "shifts"
	GroupApplications  Group = "applications"
	GroupWallet        Group = "wallet"
)

// Invalidator is the data-fetch layer hook the client drives. Implementations
// must tolerate being called for a group nobody registered.
type Invalidator interface {
	Invalidate(group Group)
}

// InvalidatorFunc adapts a function to the Invalidator interface.
type InvalidatorFunc func(group Group)

func (f InvalidatorFunc) Invalidate(group Group) { f(group) }

// groupForMessage maps a message type to the cache group its consumers fetch
// from. The switch is exhaustive over domain.MessageType.
func groupForMessage(msgType domain.MessageType) Group {
	switch msgType {
	case domain.MessageNotification:
		return GroupNotifications
	case domain.MessageShiftUpdate:
		return GroupShifts
	case domain.MessageApplicationUpdate:
		return GroupApplications
	case domain.MessagePaymentUpdate:
		return GroupWallet
	default:
		return GroupNotifications
	}
}
