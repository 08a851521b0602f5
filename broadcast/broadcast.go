// broadcast/broadcast.go
package broadcast

import (
	"time"

	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/network"
	"github.com/wfunc/trexbooth/session"
)

// FeedBroadcaster pushes events to every live feed watcher. It is the
// services.Notifier the game service publishes through.
type FeedBroadcaster struct {
	sessionManager *session.Manager
	now            func() time.Time
}

func NewFeedBroadcaster(sessionManager *session.Manager) *FeedBroadcaster {
	return &FeedBroadcaster{
		sessionManager: sessionManager,
		now:            time.Now,
	}
}

// BroadcastToAll fails only when the payload cannot be encoded. Watchers
// that cannot be written to are removed and closed.
func (b *FeedBroadcaster) BroadcastToAll(event string, payload interface{}) error {
	frame, err := network.Encode(event, payload, b.now())
	if err != nil {
		return err
	}

	// Get a thread-safe copy of the sessions
	sessions := b.sessionManager.All()

	for _, s := range sessions {
		if err := s.Send(frame); err != nil {
			logger.Log.Warnw("dropping feed watcher", "session_id", s.GetID(), "error", err)
			b.sessionManager.Remove(s.GetID())
			s.Close()
		}
	}

	return nil
}
