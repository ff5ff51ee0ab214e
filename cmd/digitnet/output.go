package main

import (
	"log"
	"net/http"

	"github.com/gorgonia/digitnet"
	"github.com/gorilla/websocket"
)

// feed pushes progress snapshots to a websocket client as JSON. It satisfies digitnet.Reporter.
// Snapshots are dropped rather than queued when nobody is listening.
type feed struct {
	progress chan digitnet.Progress
}

var upgrader = websocket.Upgrader{} // use default options

func newFeed() *feed {
	return &feed{progress: make(chan digitnet.Progress, 16)}
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()
	for {
		select {
		case p := <-f.progress:
			if err = c.WriteJSON(p); err != nil {
				log.Println("write:", err)
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// Report implements digitnet.Reporter
func (f *feed) Report(p digitnet.Progress) {
	select {
	case f.progress <- p:
	default:
	}
}
