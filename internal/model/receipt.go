package model

import (
	"strings"
	"time"
)

// ReadReceipt is one viewer's read acknowledgment of a shared message.
type ReadReceipt struct {
	ViewerID string    `json:"user_email"`
	IsRead   bool      `json:"is_read"`
	ReadAt   time.Time `json:"read_at"`
}

// ReadReceipts is the receipt list attached to broadcast and group messages.
type ReadReceipts []ReadReceipt

// ReadBy reports whether viewerID has a receipt marked read.
func (rs ReadReceipts) ReadBy(viewerID string) bool {
	for _, r := range rs {
		if r.IsRead && strings.EqualFold(r.ViewerID, viewerID) {
			return true
		}
	}
	return false
}

// MarkRead returns a copy of the list where viewerID's receipt is read at
// the given time. An existing entry for the viewer is updated in place;
// otherwise one is appended. Other viewers' entries are left untouched.
func (rs ReadReceipts) MarkRead(viewerID string, at time.Time) ReadReceipts {
	out := make(ReadReceipts, len(rs), len(rs)+1)
	copy(out, rs)
	for i := range out {
		if strings.EqualFold(out[i].ViewerID, viewerID) {
			out[i].IsRead = true
			out[i].ReadAt = at
			return out
		}
	}
	return append(out, ReadReceipt{ViewerID: viewerID, IsRead: true, ReadAt: at})
}
