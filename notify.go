package pxgated

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moonpixels/pxgated/schema"
)

const notificationTTL = 8 * time.Second

// NotifyCenter holds the ephemeral user-facing messages. Entries expire
// after a fixed delay or on explicit dismissal; Sweep is driven by a cron
// job.
type NotifyCenter struct {
	lock sync.RWMutex
	list []schema.Notification
}

func NewNotifyCenter() *NotifyCenter {
	return &NotifyCenter{list: make([]schema.Notification, 0)}
}

func (n *NotifyCenter) Add(typ, title, message, txHash string) schema.Notification {
	nt := schema.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
		TxHash:    txHash,
	}
	n.lock.Lock()
	n.list = append(n.list, nt)
	n.lock.Unlock()

	log.Debug("notify", "type", typ, "title", title, "msg", message)
	return nt
}

func (n *NotifyCenter) Remove(id string) bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	for i, nt := range n.list {
		if nt.ID == id {
			n.list = append(n.list[:i], n.list[i+1:]...)
			return true
		}
	}
	return false
}

func (n *NotifyCenter) List() []schema.Notification {
	n.lock.RLock()
	defer n.lock.RUnlock()
	out := make([]schema.Notification, len(n.list))
	copy(out, n.list)
	return out
}

// Sweep drops expired notifications and returns how many were removed.
func (n *NotifyCenter) Sweep() int {
	cutoff := time.Now().Add(-notificationTTL).UnixMilli()
	n.lock.Lock()
	defer n.lock.Unlock()
	kept := n.list[:0]
	removed := 0
	for _, nt := range n.list {
		if nt.Timestamp >= cutoff {
			kept = append(kept, nt)
		} else {
			removed++
		}
	}
	n.list = kept
	return removed
}
