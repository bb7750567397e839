package pagepool

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type ioOp string

const (
	opReadThrough ioOp = "readthrough"
	opWriteBack   ioOp = "writeback"
)

// observer collects everything the shards report: atomic counters for
// GetStats, OpenTelemetry instruments and spans around backend I/O.
type observer struct {
	stats counters

	hits       metric.Int64Counter
	misses     metric.Int64Counter
	evictions  metric.Int64Counter
	writeBacks metric.Int64Counter
	ioErrors   metric.Int64Counter
	ioDuration metric.Float64Histogram
	resident   metric.Int64ObservableGauge

	meter        metric.Meter
	tracer       trace.Tracer
	registration metric.Registration
}

func newObserver(meter metric.Meter, tracer trace.Tracer) (*observer, error) {
	o := &observer{meter: meter, tracer: tracer}
	var err error

	if o.hits, err = meter.Int64Counter(
		"pagepool.hits",
		metric.WithDescription("Get calls served from memory."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if o.misses, err = meter.Int64Counter(
		"pagepool.misses",
		metric.WithDescription("Get calls that read through to the backing file."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if o.evictions, err = meter.Int64Counter(
		"pagepool.evictions",
		metric.WithDescription("Pages evicted to make room for another key."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if o.writeBacks, err = meter.Int64Counter(
		"pagepool.writebacks",
		metric.WithDescription("Dirty pages written to the backing file."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if o.ioErrors, err = meter.Int64Counter(
		"pagepool.io_errors",
		metric.WithDescription("Failed backend reads and writes."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if o.ioDuration, err = meter.Float64Histogram(
		"pagepool.io.duration",
		metric.WithDescription("Latency of backend page reads and writes."),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if o.resident, err = meter.Int64ObservableGauge(
		"pagepool.resident",
		metric.WithDescription("Pages currently held in memory."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	return o, nil
}

// observeResident registers the resident gauge callback. Called once the
// shards exist.
func (o *observer) observeResident(resident func() int) error {
	reg, err := o.meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(o.resident, int64(resident()))
		return nil
	}, o.resident)
	if err != nil {
		return err
	}
	o.registration = reg
	return nil
}

func (o *observer) unregister() {
	if o.registration != nil {
		_ = o.registration.Unregister()
	}
}

func (o *observer) shardAttrs(id int) metric.MeasurementOption {
	return metric.WithAttributeSet(attribute.NewSet(attribute.Int("shard", id)))
}

func (o *observer) hit(attrs metric.MeasurementOption) {
	atomic.AddUint64(&o.stats.hits, 1)
	o.hits.Add(context.Background(), 1, attrs)
}

func (o *observer) miss(attrs metric.MeasurementOption) {
	atomic.AddUint64(&o.stats.misses, 1)
	o.misses.Add(context.Background(), 1, attrs)
}

func (o *observer) evicted(attrs metric.MeasurementOption) {
	atomic.AddUint64(&o.stats.evictions, 1)
	o.evictions.Add(context.Background(), 1, attrs)
}

func (o *observer) wroteBack(attrs metric.MeasurementOption) {
	atomic.AddUint64(&o.stats.writeBacks, 1)
	o.writeBacks.Add(context.Background(), 1, attrs)
}

// io runs one backend call inside a span and records its latency.
func (o *observer) io(op ioOp, shardID int, attrs metric.MeasurementOption, key uint64, fn func() error) error {
	ctx, span := o.tracer.Start(context.Background(), "pagepool."+string(op),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("pagepool.shard", shardID),
			attribute.Int64("pagepool.key", int64(key)),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn()
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	o.ioDuration.Record(ctx, elapsed, attrs, metric.WithAttributes(attribute.String("op", string(op))))

	if err != nil {
		atomic.AddUint64(&o.stats.ioErrors, 1)
		o.ioErrors.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("op", string(op))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
