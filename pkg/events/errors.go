package events

import "errors"

var (
	ErrEmptyName      = errors.New("events: empty event name")
	ErrEncode         = errors.New("events: encode payload")
	ErrPublish        = errors.New("events: publish")
	ErrNoBrokers      = errors.New("events: no kafka brokers configured")
	ErrMissingTopic   = errors.New("events: missing kafka topic")
	ErrMissingStream  = errors.New("events: missing redis stream name")
	ErrNilRedisClient = errors.New("events: nil redis client")
)
