// Package relay forwards listener records to the presentation layer over MQTT.
package relay

import (
	"context"
	"encoding/json"

	"fluxviewer/internal/eventbuf"
	"fluxviewer/internal/logger"
)

// Forward drains src in order and publishes every record as JSON on topic(record) until ctx is done.
func Forward[T any](ctx context.Context, log *logger.Log, pub Publisher, src *eventbuf.Buffer[T], topic func(T) string) {
	failing := false
	for {
		rec, ok := src.Next(ctx)
		if !ok {
			return
		}

		msg, err := json.Marshal(rec)
		if err != nil {
			log.Errorf("record could not be encoded: %v", err)
			continue
		}

		name := topic(rec)
		if err := pub.Publish(name, msg); err != nil {
			if !failing {
				log.Warnf("publish to %s failed, dropping records until it recovers: %v", name, err)
				failing = true
			}
			continue
		}
		if failing {
			log.Infof("publishing to %s again", name)
			failing = false
		}
	}
}

// LogPublisher writes records to the debug log. Used when MQTT is disabled.
type LogPublisher struct {
	log *logger.Log
}

func NewLogPublisher(log *logger.Log) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(topic string, payload []byte) error {
	p.log.With(logger.Fields{"topic": topic}).Debug(string(payload))
	return nil
}
