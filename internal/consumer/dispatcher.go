package consumer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/heartbeat"
	"github.com/anand0056/rfid-server-setup/internal/metrics"
	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/processor"
)

// Topics the dispatcher recognises.
const (
	TopicBinimise  = "binimise/rfid"
	TopicScan      = "rfid/scan"
	TopicHeartbeat = "rfid/heartbeat"
)

// Route names where a message went.
type Route string

const (
	RouteScan      Route = "scan"
	RouteHeartbeat Route = "heartbeat"
	RouteIgnored   Route = "ignored"
)

// RouteFor maps a topic to its handler.
func RouteFor(topic string) Route {
	switch {
	case topic == TopicBinimise, topic == TopicScan:
		return RouteScan
	case topic == TopicHeartbeat:
		return RouteHeartbeat
	case strings.HasPrefix(topic, "rfid/") && strings.HasSuffix(topic, "/scan"):
		return RouteScan
	default:
		return RouteIgnored
	}
}

// ScanProcessor handles scan topics.
type ScanProcessor interface {
	Process(ctx context.Context, event models.ScanEvent) processor.Outcome
}

// HeartbeatHandler handles the heartbeat topic.
type HeartbeatHandler interface {
	Handle(ctx context.Context, payload []byte) heartbeat.Result
}

// Dispatcher 按主题分发消息
type Dispatcher struct {
	scans      ScanProcessor
	heartbeats HeartbeatHandler
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewDispatcher(scans ScanProcessor, heartbeats HeartbeatHandler, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		scans:      scans,
		heartbeats: heartbeats,
		metrics:    m,
		logger:     logger,
	}
}

// Dispatch runs the handler for topic to completion. Pipeline failures are
// recorded by the handlers themselves, so Dispatch has nothing to return.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, payload []byte) Route {
	route := RouteFor(topic)
	d.metrics.Message(string(route))

	switch route {
	case RouteScan:
		outcome := d.scans.Process(ctx, models.ScanEvent{Topic: topic, Payload: payload})
		d.logger.Debug("Processed scan message", zap.String("topic", topic), zap.String("outcome", string(outcome)))
	case RouteHeartbeat:
		result := d.heartbeats.Handle(ctx, payload)
		d.logger.Debug("Processed heartbeat", zap.String("result", string(result)))
	default:
		d.logger.Debug("Ignoring message on unhandled topic", zap.String("topic", topic))
	}
	return route
}
