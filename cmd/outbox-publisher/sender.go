package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// sender is the narrow slice of *pubsub.Publisher the relay needs, so tests
// can swap in a recorder.
type sender interface {
	Publish(context.Context, *gcppubsub.Message) ack
}

type ack interface {
	Get(context.Context) (string, error)
}

type pubsubSender struct {
	p *gcppubsub.Publisher
}

func wrapPublisher(p *gcppubsub.Publisher) sender {
	if p == nil {
		return nil
	}
	return pubsubSender{p: p}
}

func (s pubsubSender) Publish(ctx context.Context, msg *gcppubsub.Message) ack {
	res := s.p.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return pubsubAck{res: res}
}

type pubsubAck struct {
	res *gcppubsub.PublishResult
}

func (a pubsubAck) Get(ctx context.Context) (string, error) {
	if a.res == nil {
		return "", errors.New("publish result missing")
	}
	return a.res.Get(ctx)
}
