// Command recorder-demo records a short synthetic session against a running
// dvr-service and prints the session id for replay lookup.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/firmly/dvr/recorder"
)

// scriptedSource emits a meta event followed by periodic incremental events,
// standing in for a real DOM capture library.
type scriptedSource struct {
	url  string
	done chan struct{}
}

func (s *scriptedSource) Start(emit func(recorder.Event)) error {
	s.done = make(chan struct{})
	emit(recorder.Event{
		Type:      recorder.EventTypeMeta,
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]any{"href": s.url},
	})
	emit(recorder.Event{
		Type:      recorder.EventTypeFullSnapshot,
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]any{"node": "document"},
	})

	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		seq := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				seq++
				emit(recorder.Event{
					Type:      recorder.EventTypeIncremental,
					Timestamp: time.Now().UnixMilli(),
					Data:      map[string]any{"seq": seq},
				})
			}
		}
	}()
	return nil
}

func (s *scriptedSource) Stop() {
	close(s.done)
}

func main() {
	serviceURL := flag.String("service", "http://localhost:8080", "dvr-service base URL")
	duration := flag.Duration("duration", 3*time.Second, "how long to record")
	flag.Parse()

	source := &scriptedSource{url: "https://shop.example.com/checkout"}
	rec := recorder.New(source, recorder.Config{
		ServiceURL: *serviceURL,
		AppName:    "recorder-demo",
		OnError: func(err error) {
			log.Printf("transport error: %v", err)
		},
	})

	ctx := context.Background()
	sessionID, err := rec.Start(ctx, "")
	if err != nil {
		log.Fatalf("failed to start recording: %v", err)
	}
	log.Printf("recording session %s for %s", sessionID, *duration)

	time.Sleep(*duration)
	rec.Stop(ctx)
	log.Printf("done; fetch with GET %s/api/sessions/%s", *serviceURL, sessionID)
}
