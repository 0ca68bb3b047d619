package webd

import (
	"encoding/json"
	"log/slog"

	"github.com/ethereum/go-ethereum/event"
	"github.com/olahol/melody"
	"github.com/rotblauer/catmotion/events"
)

type websocketAction string

var (
	websocketActionStatus   websocketAction = "status"
	websocketActionActivity websocketAction = "activity"
	websocketActionVisit    websocketAction = "visit"
)

type broadcats struct {
	Action  websocketAction `json:"action"`
	Payload any             `json:"payload"`
}

// initMelody sets up the websocket hub.
// Clients get every cat's status on connect, then every finalized activity
// and every station or airport visit as it happens.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		s.logger.Debug("Websocket connected", "remote", sess.Request.RemoteAddr)
		b, err := json.Marshal(broadcats{Action: websocketActionStatus, Payload: s.app.Statuses()})
		if err != nil {
			s.logger.Error("Failed to marshal status", "error", err)
			return
		}
		_ = sess.Write(b)
	})

	// Clients have nothing to say. Log and drop.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", sess.Request.RemoteAddr, "msg", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Debug("Websocket disconnected", "remote", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, e error) {
		s.logger.Warn("Websocket error", "error", e, "remote", sess.Request.RemoteAddr)
	})

	if s.feedSubs != nil {
		s.feedSubs.Close()
	}
	s.feedSubs = new(event.SubscriptionScope)
	activities := make(chan events.Activity, 64)
	visits := make(chan events.RegionVisit, 64)
	activitySub := s.feedSubs.Track(events.ActivityFeed.Subscribe(activities))
	visitSub := s.feedSubs.Track(events.RegionVisitFeed.Subscribe(visits))
	m := s.melodyInstance
	broadcast := func(action websocketAction, payload any) {
		b, err := json.Marshal(broadcats{Action: action, Payload: payload})
		if err != nil {
			slog.Error("Failed to marshal websocket event", "action", action, "error", err)
			return
		}
		if err := m.Broadcast(b); err != nil {
			slog.Warn("Failed to broadcast websocket event", "action", action, "error", err)
		}
	}
	go func() {
		for {
			select {
			case a := <-activities:
				broadcast(websocketActionActivity, a)
			case v := <-visits:
				broadcast(websocketActionVisit, v)
			// Both are closed on Unsubscribe.
			case err := <-activitySub.Err():
				if err != nil {
					slog.Error("Activity feed subscription failed", "error", err)
				}
				return
			case err := <-visitSub.Err():
				if err != nil {
					slog.Error("Region visit feed subscription failed", "error", err)
				}
				return
			}
		}
	}()
}
