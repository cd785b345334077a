package ws

import "time"

type Options struct {
	AllowedOrigins  []string
	SendQueue       int
	MaxMessageBytes int64
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	EventsPerSecond float64
	EventBurst      int
}

func DefaultOptions() Options {
	return Options{
		SendQueue:       64,
		MaxMessageBytes: 64 << 10,
		PingInterval:    25 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		EventsPerSecond: 20,
		EventBurst:      40,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendQueue <= 0 {
		o.SendQueue = d.SendQueue
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = d.MaxMessageBytes
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.EventBurst <= 0 {
		o.EventBurst = d.EventBurst
	}
	return o
}
